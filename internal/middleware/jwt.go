package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "context"  // context for the optional user existence lookup
    "errors"   // errors.As extracts the verification failure kind
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for splitting the Authorization header

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/task-tracker/internal/logutil" // request-scoped logger
    "github.com/iliyamo/task-tracker/internal/utils"   // token verification error kinds
)

// Client-facing messages of the auth gate.
const (
    MsgAuthHeaderMissing = "Authorization header missing"
    MsgTokenMissing      = "Token missing"
    MsgInvalidOrExpired  = "Invalid or expired token"
    MsgServerError       = "Server error"
)

// ContextUserID is the echo.Context key holding the authenticated user id
// (uint64) for the rest of the request.
const ContextUserID = "user_id"

// TokenVerifier resolves a raw bearer token to a user id.
type TokenVerifier interface {
    Verify(raw string) (uint64, error)
}

// UserChecker reports whether a user still exists.
type UserChecker interface {
    Exists(ctx context.Context, id uint64) (bool, error)
}

// JWTAuth returns an Echo middleware guarding protected routes.  It keeps
// three observable outcomes apart:
//   - no Authorization header at all          -> 401 "Authorization header missing"
//   - header present but no token value       -> 401 "Token missing"
//   - token present but wrong scheme, bad signature, expired or malformed
//                                             -> 403 "Invalid or expired token"
// The verifier's internal failure kind is logged, then collapsed into the
// single 403 message.  When users is non-nil the token subject must still
// exist in the credential store; a deleted user's token gets the same 403.
// On success the user id is stored under ContextUserID.
func JWTAuth(tokens TokenVerifier, users UserChecker) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            logger := logutil.GetOrDefault(c.Request().Context())

            header := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization))
            if header == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"message": MsgAuthHeaderMissing})
            }

            // "Bearer <token>": the token is the second space-separated
            // field, so "Bearer  x" carries an empty token
            scheme, rest, _ := strings.Cut(header, " ")
            raw, _, _ := strings.Cut(rest, " ")
            if raw == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"message": MsgTokenMissing})
            }
            if !strings.EqualFold(scheme, "Bearer") {
                logger.Debug().Str("reason", "bad_scheme").Msg("token rejected")
                return c.JSON(http.StatusForbidden, echo.Map{"message": MsgInvalidOrExpired})
            }

            uid, err := tokens.Verify(raw)
            if err != nil {
                reason := "unknown"
                var te *utils.TokenError
                if errors.As(err, &te) {
                    reason = te.Kind.String()
                }
                logger.Debug().Str("reason", reason).Err(err).Msg("token rejected")
                return c.JSON(http.StatusForbidden, echo.Map{"message": MsgInvalidOrExpired})
            }

            if users != nil {
                ok, err := users.Exists(c.Request().Context(), uid)
                if err != nil {
                    logger.Error().Err(err).Uint64("user_id", uid).Msg("user existence check failed")
                    return c.JSON(http.StatusInternalServerError, echo.Map{"message": MsgServerError})
                }
                if !ok {
                    logger.Debug().Str("reason", "unknown_subject").Uint64("user_id", uid).Msg("token rejected")
                    return c.JSON(http.StatusForbidden, echo.Map{"message": MsgInvalidOrExpired})
                }
            }

            c.Set(ContextUserID, uid)
            return next(c)
        }
    }
}
