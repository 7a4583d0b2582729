package middleware

import (
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    "github.com/rs/zerolog"

    "github.com/iliyamo/task-tracker/internal/logutil"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

// RequestLogger attaches a child of base tagged with a request id to the
// request context and writes one access line per request once the handler
// has finished.  Incoming X-Request-ID values are reused.
func RequestLogger(base zerolog.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()
            rid := req.Header.Get(HeaderRequestID)
            if rid == "" {
                rid = uuid.NewString()
            }
            c.Response().Header().Set(HeaderRequestID, rid)

            logger := base.With().Str("request_id", rid).Logger()
            c.SetRequest(req.WithContext(logutil.WithLogger(req.Context(), logger)))

            start := time.Now()
            err := next(c)
            if err != nil {
                // let the error handler write the response so the status is final
                c.Error(err)
            }

            status := c.Response().Status
            var ev *zerolog.Event
            switch {
            case status >= 500:
                ev = logger.Error().Err(err)
            case status >= 400:
                ev = logger.Info()
            default:
                ev = logger.Debug()
            }
            ev = ev.Str("method", req.Method).
                Str("path", c.Path()).
                Int("status", status).
                Dur("latency", time.Since(start))
            if uid, ok := UserID(c); ok {
                ev = ev.Uint64("user_id", uid)
            }
            ev.Msg("request")
            return nil
        }
    }
}
