package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/binary"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/task-tracker/internal/config"
    "github.com/iliyamo/task-tracker/internal/logutil"
)

// captureWriter captures the response body while forwarding to the client.
type captureWriter struct {
    http.ResponseWriter
    buf   bytes.Buffer
    size  int64
    limit int64
}

func (cw *captureWriter) Write(b []byte) (int, error) {
    if cw.limit <= 0 {
        cw.buf.Write(b)
    } else if remain := cw.limit - cw.size; remain > 0 {
        if int64(len(b)) <= remain {
            cw.buf.Write(b)
        } else {
            cw.buf.Write(b[:remain])
        }
    }
    cw.size += int64(len(b))
    return cw.ResponseWriter.Write(b)
}

// userCachePrefix namespaces all entries of one user so they can be purged together.
func userCachePrefix(cfg config.CacheConfig, uid string) string {
    return cfg.Prefix + ":u:" + uid + ":"
}

// userGenKey holds the user's cache generation.  It lives outside
// userCachePrefix so purging never resets it.
func userGenKey(cfg config.CacheConfig, uid string) string {
    return cfg.Prefix + ":gen:" + uid
}

// cacheKeyFrom builds a stable key from the user, the user's cache
// generation, route pattern, concrete path and query string.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context, uid string, gen int64) string {
    r := c.Request()
    tail := strings.Join([]string{r.Method, c.Path(), r.URL.Path, r.URL.RawQuery}, "|")
    sum := sha1.Sum([]byte(tail))
    return fmt.Sprintf("%s%d:%x", userCachePrefix(cfg, uid), gen, sum[:])
}

// userGeneration returns the current generation, 0 when none was recorded.
func userGeneration(ctx context.Context, rdb *redis.Client, cfg config.CacheConfig, uid string) (int64, error) {
    gen, err := rdb.Get(ctx, userGenKey(cfg, uid)).Int64()
    if errors.Is(err, redis.Nil) {
        return 0, nil
    }
    return gen, err
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
    hdrJSON, err := json.Marshal(header)
    if err != nil {
        return nil, err
    }
    out := make([]byte, 8+len(hdrJSON)+len(body))
    binary.BigEndian.PutUint32(out[0:4], uint32(status))
    binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
    copy(out[8:8+len(hdrJSON)], hdrJSON)
    copy(out[8+len(hdrJSON):], body)
    return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
    if len(bs) < 8 {
        return 0, nil, nil, false
    }
    status = int(binary.BigEndian.Uint32(bs[0:4]))
    hlen := int(binary.BigEndian.Uint32(bs[4:8]))
    if hlen < 0 || 8+hlen > len(bs) {
        return 0, nil, nil, false
    }
    hdr := make(http.Header)
    if hlen > 0 {
        if err := json.Unmarshal(bs[8:8+hlen], &hdr); err != nil {
            return 0, nil, nil, false
        }
    }
    return status, hdr, bs[8+hlen:], true
}

// purgeUser bumps the user's generation, which orphans every entry keyed
// under an older one, then deletes the user's entries.  A read that
// started before the bump stores its result under the old generation,
// where no later lookup will find it.
func purgeUser(ctx context.Context, rdb *redis.Client, cfg config.CacheConfig, uid string) error {
    if err := rdb.Incr(ctx, userGenKey(cfg, uid)).Err(); err != nil {
        return err
    }
    iter := rdb.Scan(ctx, 0, userCachePrefix(cfg, uid)+"*", 100).Iterator()
    var keys []string
    for iter.Next(ctx) {
        keys = append(keys, iter.Val())
    }
    if err := iter.Err(); err != nil {
        return err
    }
    if len(keys) == 0 {
        return nil
    }
    return rdb.Del(ctx, keys...).Err()
}

// NewRedisCache caches successful responses per authenticated user and
// replays status, headers and body on a hit.  Any successful request with
// a method outside cfg.Methods starts a new cache generation for the
// caller, so once a change has been acknowledged no later read of that
// user is served from an entry computed before it.  It must run after
// JWTAuth; anonymous requests bypass the cache.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    ttl := cfg.TTL
    if ttl <= 0 { ttl = 30 * time.Second }

    maxBody := int64(cfg.MaxBodyBytes)

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            uid, ok := UserID(c)
            if !ok {
                return next(c)
            }
            user := userKey(c)
            ctx := c.Request().Context()
            logger := logutil.GetOrDefault(ctx).With().Uint64("user_id", uid).Logger()

            if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
                if err := next(c); err != nil {
                    return err
                }
                if s := c.Response().Status; s >= 200 && s < 300 {
                    if err := purgeUser(context.WithoutCancel(ctx), rdb, cfg, user); err != nil {
                        logger.Warn().Err(err).Msg("cache: purge failed")
                    }
                }
                return nil
            }

            gen, err := userGeneration(ctx, rdb, cfg, user)
            if err != nil {
                logger.Warn().Err(err).Msg("cache: generation lookup failed")
                return next(c)
            }
            key := cacheKeyFrom(cfg, c, user, gen)

            if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
                if status, hdr, body, ok := decodePayload(bs); ok {
                    for k, vals := range hdr {
                        // Content-Length is recomputed by the server
                        if strings.EqualFold(k, echo.HeaderContentLength) { continue }
                        for _, v := range vals {
                            c.Response().Header().Add(k, v)
                        }
                    }
                    c.Response().Header().Set("X-Cache", "HIT")
                    c.Response().WriteHeader(status)
                    if len(body) > 0 {
                        _, _ = c.Response().Write(body)
                    }
                    return nil
                }
            } else if err != redis.Nil {
                logger.Warn().Err(err).Msg("cache: get failed")
            }

            // Miss: capture
            cw := &captureWriter{ResponseWriter: c.Response().Writer, limit: maxBody}
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")

            if err := next(c); err != nil {
                return err
            }

            if c.Response().Status == http.StatusOK && (maxBody <= 0 || cw.size <= maxBody) {
                hdr := c.Response().Header().Clone()
                hdr.Del("X-Cache")
                if payload, err := encodePayload(http.StatusOK, hdr, cw.buf.Bytes()); err == nil {
                    if err := rdb.SetEx(context.WithoutCancel(ctx), key, payload, ttl).Err(); err != nil {
                        logger.Warn().Err(err).Msg("cache: set failed")
                    }
                }
            }
            return nil
        }
    }
}
