package middleware

import (
    "context"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/steinfletcher/apitest"
    jsonpath "github.com/steinfletcher/apitest-jsonpath"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/task-tracker/internal/config"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
    t.Helper()
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    t.Cleanup(func() { _ = rdb.Close() })
    return mr, rdb
}

func rateConfig(capacity int) config.RateLimitConfig {
    return config.RateLimitConfig{
        Enabled:        true,
        Capacity:       capacity,
        AuthCapacity:   capacity,
        RefillTokens:   1,
        RefillInterval: time.Hour,
        TTL:            2 * time.Hour,
        KeyStrategy:    "ip_route",
        Prefix:         "rl",
    }
}

func TestTokenBucket_BlocksWhenEmpty(t *testing.T) {
    _, rdb := newRedis(t)
    e := echo.New()
    e.POST("/api/auth/login", func(c echo.Context) error {
        return c.NoContent(http.StatusOK)
    }, NewTokenBucket(rateConfig(2), rdb))

    for i := 0; i < 2; i++ {
        apitest.New().Handler(e).
            Post("/api/auth/login").
            Expect(t).
            Status(http.StatusOK).
            Header("X-RateLimit-Limit", "2").
            End()
    }
    apitest.New().Handler(e).
        Post("/api/auth/login").
        Expect(t).
        Status(http.StatusTooManyRequests).
        Assert(jsonpath.Equal("$.message", MsgTooManyRequests)).
        HeaderPresent("Retry-After").
        End()
}

func TestTokenBucket_DisabledWithoutRedis(t *testing.T) {
    e := echo.New()
    e.GET("/x", func(c echo.Context) error {
        return c.NoContent(http.StatusOK)
    }, NewTokenBucket(rateConfig(1), nil))

    for i := 0; i < 3; i++ {
        apitest.New().Handler(e).Get("/x").Expect(t).Status(http.StatusOK).End()
    }
}

func TestTokenBucket_FailsOpenOnRedisError(t *testing.T) {
    mr, rdb := newRedis(t)
    e := echo.New()
    e.GET("/x", func(c echo.Context) error {
        return c.NoContent(http.StatusOK)
    }, NewTokenBucket(rateConfig(1), rdb))

    mr.Close()
    apitest.New().Handler(e).Get("/x").Expect(t).Status(http.StatusOK).End()
    apitest.New().Handler(e).Get("/x").Expect(t).Status(http.StatusOK).End()
}

func TestBuildRateKey(t *testing.T) {
    e := echo.New()
    c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/tasks", nil), httptest.NewRecorder())
    c.SetPath("/api/tasks")
    c.Set(ContextUserID, uint64(5))

    cfg := rateConfig(1)
    cfg.KeyStrategy = "user"
    assert.Equal(t, "rl:user:5", buildRateKey(cfg, c))

    cfg.KeyStrategy = "user_route"
    assert.Equal(t, "rl:user:5:route:GET /api/tasks", buildRateKey(cfg, c))

    c.Set(ContextUserID, nil)
    assert.Equal(t, "rl:user:anon", buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}, c))
}

func cacheConfig() config.CacheConfig {
    return config.CacheConfig{
        Enabled: true,
        Methods: map[string]bool{http.MethodGet: true},
        TTL:     time.Minute,
        Prefix:  "cache",
    }
}

// cachedServer wires a fake task list behind the cache.  The user id comes
// from the X-User header so the tests do not depend on JWTAuth.
func cachedServer(rdb *redis.Client, hits *int) *echo.Echo {
    e := echo.New()
    asUser := func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            switch c.Request().Header.Get("X-User") {
            case "1":
                c.Set(ContextUserID, uint64(1))
            case "2":
                c.Set(ContextUserID, uint64(2))
            }
            return next(c)
        }
    }
    g := e.Group("/api/tasks", asUser, NewRedisCache(cacheConfig(), rdb))
    g.GET("", func(c echo.Context) error {
        *hits++
        return c.JSON(http.StatusOK, echo.Map{"hits": *hits})
    })
    g.POST("", func(c echo.Context) error {
        return c.JSON(http.StatusCreated, echo.Map{"ok": true})
    })
    g.DELETE("/:id", func(c echo.Context) error {
        return c.JSON(http.StatusNotFound, echo.Map{"message": "Task not found"})
    })
    return e
}

func TestRedisCache_HitMissAndPurge(t *testing.T) {
    _, rdb := newRedis(t)
    hits := 0
    e := cachedServer(rdb, &hits)

    get := func(user, xcache string, want float64) {
        apitest.New().Handler(e).
            Get("/api/tasks").
            Header("X-User", user).
            Expect(t).
            Status(http.StatusOK).
            Header("X-Cache", xcache).
            Assert(jsonpath.Equal("$.hits", want)).
            End()
    }

    get("1", "MISS", 1)
    get("1", "HIT", 1)

    // another user has a separate entry
    get("2", "MISS", 2)

    // a failed mutation keeps the entry
    apitest.New().Handler(e).Delete("/api/tasks/3").Header("X-User", "1").
        Expect(t).Status(http.StatusNotFound).End()
    get("1", "HIT", 1)

    // a successful mutation drops only the caller's entries
    apitest.New().Handler(e).Post("/api/tasks").Header("X-User", "1").
        Expect(t).Status(http.StatusCreated).End()
    get("1", "MISS", 3)
    get("2", "HIT", 2)
}

func TestRedisCache_AnonymousBypass(t *testing.T) {
    _, rdb := newRedis(t)
    hits := 0
    e := cachedServer(rdb, &hits)

    for i := 1; i <= 2; i++ {
        apitest.New().Handler(e).
            Get("/api/tasks").
            Expect(t).
            Status(http.StatusOK).
            HeaderNotPresent("X-Cache").
            End()
    }
    require.Equal(t, 2, hits)
}

func TestPayloadRoundTrip(t *testing.T) {
    hdr := http.Header{"Content-Type": {"application/json"}}
    bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
    require.NoError(t, err)

    status, got, body, ok := decodePayload(bs)
    require.True(t, ok)
    assert.Equal(t, http.StatusOK, status)
    assert.Equal(t, "application/json", got.Get("Content-Type"))
    assert.Equal(t, `{"a":1}`, string(body))

    _, _, _, ok = decodePayload([]byte{0, 1})
    assert.False(t, ok)
}

func TestRedisCache_ReadRacingMutationIsNotServed(t *testing.T) {
    _, rdb := newRedis(t)
    e := echo.New()
    asUser := func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            c.Set(ContextUserID, uint64(1))
            return next(c)
        }
    }
    g := e.Group("/api/tasks", asUser, NewRedisCache(cacheConfig(), rdb))

    version := 0
    reads := 0
    g.POST("", func(c echo.Context) error {
        version++
        return c.NoContent(http.StatusCreated)
    })
    g.GET("", func(c echo.Context) error {
        reads++
        seen := version
        if reads == 1 {
            // a write completes after this read loaded its data but
            // before the response is stored
            rec := httptest.NewRecorder()
            e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/tasks", nil))
            require.Equal(t, http.StatusCreated, rec.Code)
        }
        return c.JSON(http.StatusOK, echo.Map{"version": seen})
    })

    apitest.New().Handler(e).Get("/api/tasks").
        Expect(t).Status(http.StatusOK).
        Header("X-Cache", "MISS").
        Assert(jsonpath.Equal("$.version", float64(0))).
        End()

    apitest.New().Handler(e).Get("/api/tasks").
        Expect(t).Status(http.StatusOK).
        Header("X-Cache", "MISS").
        Assert(jsonpath.Equal("$.version", float64(1))).
        End()

    apitest.New().Handler(e).Get("/api/tasks").
        Expect(t).Status(http.StatusOK).
        Header("X-Cache", "HIT").
        Assert(jsonpath.Equal("$.version", float64(1))).
        End()
}

func TestPurgeUserBumpsGeneration(t *testing.T) {
    _, rdb := newRedis(t)
    cfg := cacheConfig()
    ctx := context.Background()

    gen, err := userGeneration(ctx, rdb, cfg, "7")
    require.NoError(t, err)
    assert.Zero(t, gen)

    require.NoError(t, rdb.Set(ctx, userCachePrefix(cfg, "7")+"0:abc", "x", 0).Err())
    require.NoError(t, rdb.Set(ctx, userCachePrefix(cfg, "8")+"0:abc", "y", 0).Err())
    require.NoError(t, purgeUser(ctx, rdb, cfg, "7"))

    gen, err = userGeneration(ctx, rdb, cfg, "7")
    require.NoError(t, err)
    assert.Equal(t, int64(1), gen)
    assert.Zero(t, rdb.Exists(ctx, userCachePrefix(cfg, "7")+"0:abc").Val())
    assert.Equal(t, int64(1), rdb.Exists(ctx, userCachePrefix(cfg, "8")+"0:abc").Val())
}
