package middleware

// identity.go defines helpers shared across middleware files and handlers
// for reading the authenticated user id that JWTAuth stores in the Echo
// context.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// UserID returns the authenticated user id, or false when the request did
// not pass through JWTAuth.
func UserID(c echo.Context) (uint64, bool) {
    uid, ok := c.Get(ContextUserID).(uint64)
    return uid, ok && uid != 0
}

// userKey renders the user id for cache and rate limit keys.  Anonymous
// requests share the "anon" bucket.
func userKey(c echo.Context) string {
    if uid, ok := UserID(c); ok {
        return strconv.FormatUint(uid, 10)
    }
    return "anon"
}
