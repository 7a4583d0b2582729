package utils // package utils provides helper functions for token creation and hashing

import (
    "errors"  // sentinel errors for each verification failure kind
    "strconv" // user ids travel as decimal strings in the sub claim
    "strings" // whitespace trimming of raw tokens
    "time"    // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
)

// TokenErrorKind enumerates why a token failed verification.  The HTTP
// layer collapses every kind into one client-visible outcome, but the kind
// is kept so that it can be logged.
type TokenErrorKind int

const (
    TokenMissing     TokenErrorKind = iota + 1 // empty token string
    TokenMalformed                             // not a parseable JWT or unusable claims
    InvalidSignature                           // signed with another key or algorithm
    Expired                                    // check time is at or after exp
)

// String returns a stable, log-friendly name for the kind.
func (k TokenErrorKind) String() string {
    switch k {
    case TokenMissing:
        return "token_missing"
    case TokenMalformed:
        return "malformed"
    case InvalidSignature:
        return "invalid_signature"
    case Expired:
        return "expired"
    }
    return "unknown"
}

// Sentinels matched by TokenError.Is so callers can use errors.Is.
var (
    ErrTokenMissing   = errors.New("token missing")
    ErrTokenMalformed = errors.New("token malformed")
    ErrTokenSignature = errors.New("token signature invalid")
    ErrTokenExpired   = errors.New("token expired")
)

// TokenError is returned by TokenManager.Verify.  Cause holds the
// underlying jwt error when there is one.
type TokenError struct {
    Kind  TokenErrorKind
    Cause error
}

func (e *TokenError) Error() string {
    if e.Cause != nil {
        return e.Kind.String() + ": " + e.Cause.Error()
    }
    return e.Kind.String()
}

func (e *TokenError) Unwrap() error { return e.Cause }

// Is reports whether target is the sentinel for this error's kind.
func (e *TokenError) Is(target error) bool {
    switch target {
    case ErrTokenMissing:
        return e.Kind == TokenMissing
    case ErrTokenMalformed:
        return e.Kind == TokenMalformed
    case ErrTokenSignature:
        return e.Kind == InvalidSignature
    case ErrTokenExpired:
        return e.Kind == Expired
    }
    return false
}

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string sent as "Authorization: Bearer".
type AccessToken struct {
    Token    string    // the serialized JWT string
    IssuedAt time.Time // the UTC issue time
    Exp      time.Time // the UTC expiration time
}

// TokenManager issues and verifies HS256 session tokens.  The secret and
// TTL are fixed when the manager is built and are only read afterwards, so
// one manager is shared by every request goroutine.
type TokenManager struct {
    secret []byte
    ttl    time.Duration
    // Now is the clock used for issue and expiry checks.  Tests replace it.
    Now func() time.Time
}

// NewTokenManager builds a manager signing with secret.  A non-positive
// ttl falls back to 24 hours.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
    if ttl <= 0 {
        ttl = 24 * time.Hour
    }
    return &TokenManager{secret: []byte(secret), ttl: ttl, Now: time.Now}
}

// TTL returns the validity window applied to new tokens.
func (m *TokenManager) TTL() time.Duration { return m.ttl }

// Issue builds and signs a token for userID.  The subject (sub) carries the
// decimal user id, iat the issue time and exp the issue time plus the TTL.
// Times are truncated to whole seconds because JWT NumericDate has second
// precision; this keeps exp exactly iat+TTL.
func (m *TokenManager) Issue(userID uint64) (AccessToken, error) {
    now := m.Now().UTC().Truncate(time.Second)
    exp := now.Add(m.ttl)
    claims := jwt.RegisteredClaims{
        Subject:   strconv.FormatUint(userID, 10),
        IssuedAt:  jwt.NewNumericDate(now),
        ExpiresAt: jwt.NewNumericDate(exp),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString(m.secret)
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, IssuedAt: now, Exp: exp}, nil
}

// Verify checks a raw token and returns the user id from its subject.
// Checks run in this order: empty input, structure, signature, expiry.
// Any failure is a *TokenError describing which check failed.
func (m *TokenManager) Verify(raw string) (uint64, error) {
    raw = strings.TrimSpace(raw)
    if raw == "" {
        return 0, &TokenError{Kind: TokenMissing}
    }

    claims := &jwt.RegisteredClaims{}
    _, err := jwt.ParseWithClaims(raw, claims,
        func(t *jwt.Token) (interface{}, error) { return m.secret, nil },
        jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
        jwt.WithExpirationRequired(),
        jwt.WithTimeFunc(m.Now),
    )
    if err != nil {
        return 0, classify(err)
    }

    uid, err := strconv.ParseUint(claims.Subject, 10, 64)
    if err != nil || uid == 0 {
        return 0, &TokenError{Kind: TokenMalformed, Cause: errors.New("subject is not a user id")}
    }
    return uid, nil
}

// classify maps jwt parse errors to a TokenErrorKind.  Signature problems
// are tested before expiry because jwt reports them first.
func classify(err error) *TokenError {
    switch {
    case errors.Is(err, jwt.ErrTokenMalformed):
        return &TokenError{Kind: TokenMalformed, Cause: err}
    case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
        return &TokenError{Kind: InvalidSignature, Cause: err}
    case errors.Is(err, jwt.ErrTokenExpired):
        return &TokenError{Kind: Expired, Cause: err}
    default:
        return &TokenError{Kind: TokenMalformed, Cause: err}
    }
}
