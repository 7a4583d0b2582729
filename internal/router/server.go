package router

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/task-tracker/internal/config"
	"github.com/iliyamo/task-tracker/internal/handler"
	"github.com/iliyamo/task-tracker/internal/logutil"
	"github.com/iliyamo/task-tracker/internal/middleware"
)

// Deps gathers everything New needs to assemble the HTTP server.
type Deps struct {
	Auth   *handler.AuthHandler
	Tasks  *handler.TaskHandler
	Tokens middleware.TokenVerifier
	// Users enables the per-request existence check on the token subject.
	// Leave nil to trust any validly signed token.
	Users     middleware.UserChecker
	DB        handler.Pinger
	Redis     *redis.Client // nil disables rate limiting and caching
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
}

// New builds the Echo instance with the global middleware and every route.
func New(logger zerolog.Logger, d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	// the logger wraps recover so panics show up as 500 access lines
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomw.Recover())

	gate := middleware.JWTAuth(d.Tokens, d.Users)
	authLimit := d.RateLimit.WithCapacity(d.RateLimit.AuthCapacity)
	authLimit.KeyStrategy = "ip_route"

	RegisterRoutes(e, d.DB)
	RegisterAuth(e, d.Auth, gate, middleware.NewTokenBucket(authLimit, d.Redis))
	RegisterTasks(e, d.Tasks, gate,
		middleware.NewTokenBucket(d.RateLimit, d.Redis),
		middleware.NewRedisCache(d.Cache, d.Redis),
	)
	return e
}

// errorHandler renders errors that escaped a handler as {"message": ...}.
// Anything that is not an *echo.HTTPError, and every 5xx, is reported as
// "Server error" with the cause kept in the log only.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := "Server error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if code < http.StatusInternalServerError {
			if s, ok := he.Message.(string); ok {
				msg = s
			} else {
				msg = http.StatusText(code)
			}
		}
	}
	if code >= http.StatusInternalServerError {
		logger := logutil.GetOrDefault(c.Request().Context())
		logger.Error().Err(err).Msg("unhandled error")
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, echo.Map{"message": msg})
}
