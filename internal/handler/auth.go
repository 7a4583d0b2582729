package handler

import (
    "context"  // store calls are bounded by a request timeout
    "errors"   // errors.Is / errors.As match service errors
    "net/http" // HTTP status codes

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing

    "github.com/iliyamo/task-tracker/internal/middleware" // auth gate messages
    "github.com/iliyamo/task-tracker/internal/model"      // user records
    "github.com/iliyamo/task-tracker/internal/repository" // store sentinel errors
    "github.com/iliyamo/task-tracker/internal/service"    // registration and login orchestration
    "github.com/iliyamo/task-tracker/internal/utils"      // access token type
)

// Authenticator is implemented by *service.AuthService.
type Authenticator interface {
    Register(ctx context.Context, username, password string) (model.User, error)
    Login(ctx context.Context, username, password string) (utils.AccessToken, error)
}

// UserLookup loads a user by id for the "me" endpoint.
type UserLookup interface {
    GetByID(ctx context.Context, id uint64) (model.User, error)
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
    Auth  Authenticator
    Users UserLookup
}

func NewAuthHandler(auth Authenticator, users UserLookup) *AuthHandler {
    return &AuthHandler{Auth: auth, Users: users}
}

// ----- DTOs -----

type userPart struct {
    ID       uint64 `json:"id"`
    Username string `json:"username"`
}
type registerResp struct {
    User    userPart `json:"user"`
    Message string   `json:"message"`
}
type loginResp struct {
    Token   string `json:"token"`
    Message string `json:"message"`
}

// credentials extracts username and password from the body.  Missing or
// empty values are reported before wrong types.  typeMsg is the message
// used for non-string values, which differs between register and login.
func credentials(c echo.Context, typeMsg string) (string, string, string) {
    body, err := readBody(c)
    if err != nil {
        return "", "", msgInvalidBody
    }
    rawUser, rawPass := body["username"], body["password"]
    if isFalsy(rawUser) || isFalsy(rawPass) {
        return "", "", "Username and password are required"
    }
    username, ok1 := rawUser.(string)
    password, ok2 := rawPass.(string)
    if !ok1 || !ok2 {
        return "", "", typeMsg
    }
    return username, password, ""
}

// Register: validate, create the account and return its public fields.
// No token is issued; clients log in afterwards.
func (h *AuthHandler) Register(c echo.Context) error {
    username, password, bad := credentials(c, "Username and password must be strings")
    if bad != "" {
        return message(c, http.StatusBadRequest, bad)
    }

    ctx, cancel := storeContext(c)
    defer cancel()

    u, err := h.Auth.Register(ctx, username, password)
    if err != nil {
        var verr *service.ValidationError
        switch {
        case errors.As(err, &verr):
            return message(c, http.StatusBadRequest, verr.Message)
        case errors.Is(err, service.ErrUserAlreadyExists):
            // duplicates are a 400, not a 409
            return message(c, http.StatusBadRequest, "User already exists")
        }
        return serverError(c, err, "register failed")
    }

    return c.JSON(http.StatusCreated, registerResp{
        User:    userPart{ID: u.ID, Username: u.Username},
        Message: "User registered successfully",
    })
}

// Login: verify credentials and return a session token.
func (h *AuthHandler) Login(c echo.Context) error {
    username, password, bad := credentials(c, "Invalid credentials format")
    if bad != "" {
        return message(c, http.StatusBadRequest, bad)
    }

    ctx, cancel := storeContext(c)
    defer cancel()

    tok, err := h.Auth.Login(ctx, username, password)
    if err != nil {
        if errors.Is(err, service.ErrInvalidCredentials) {
            return message(c, http.StatusUnauthorized, "Invalid username or password")
        }
        return serverError(c, err, "login failed")
    }
    return c.JSON(http.StatusOK, loginResp{Token: tok.Token, Message: "Login successful"})
}

// Me: return the account behind the current token.
func (h *AuthHandler) Me(c echo.Context) error {
    uid, ok := currentUser(c)
    if !ok {
        return message(c, http.StatusUnauthorized, msgUnauthorized)
    }

    ctx, cancel := storeContext(c)
    defer cancel()

    u, err := h.Users.GetByID(ctx, uid)
    if err != nil {
        if errors.Is(err, repository.ErrUserNotFound) {
            return message(c, http.StatusForbidden, middleware.MsgInvalidOrExpired)
        }
        return serverError(c, err, "load user failed")
    }
    return c.JSON(http.StatusOK, echo.Map{"user": userPart{ID: u.ID, Username: u.Username}})
}
