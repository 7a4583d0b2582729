package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/task-tracker/internal/logutil"
    "github.com/iliyamo/task-tracker/internal/middleware"
)

// requestTimeout bounds the store calls made by a single request.
const requestTimeout = 5 * time.Second

const (
    msgServerError  = "Server error"
    msgInvalidBody  = "Invalid request body"
    msgUnauthorized = "Unauthorized"
)

// message writes the {"message": ...} body every endpoint uses for errors.
func message(c echo.Context, status int, msg string) error {
    return c.JSON(status, echo.Map{"message": msg})
}

// serverError logs err with the request logger and answers 500 without
// leaking any detail to the client.
func serverError(c echo.Context, err error, what string) error {
    logger := logutil.GetOrDefault(c.Request().Context())
    logger.Error().Err(err).Msg(what)
    return message(c, http.StatusInternalServerError, msgServerError)
}

// readBody decodes a JSON object body into a generic map so that handlers
// can tell an absent field from a null one and check value types
// themselves.  An empty body yields an empty map.
func readBody(c echo.Context) (map[string]any, error) {
    body := map[string]any{}
    if err := (&echo.DefaultBinder{}).BindBody(c, &body); err != nil {
        return nil, err
    }
    if body == nil {
        body = map[string]any{}
    }
    return body, nil
}

// isFalsy reports whether v is absent or one of the empty JSON values
// (null, "", 0, false).  Such values count as "not provided".
func isFalsy(v any) bool {
    switch t := v.(type) {
    case nil:
        return true
    case string:
        return t == ""
    case float64:
        return t == 0
    case bool:
        return !t
    }
    return false
}

// currentUser returns the id stored by JWTAuth.
func currentUser(c echo.Context) (uint64, bool) {
    return middleware.UserID(c)
}

func storeContext(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), requestTimeout)
}
