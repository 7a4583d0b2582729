package utils

import (
	"errors"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// maxBcryptInput is the number of password bytes bcrypt actually digests.
const maxBcryptInput = 72

// bcryptInput truncates to the bytes bcrypt consumes.  Newer x/crypto
// releases reject longer inputs outright, while passwords of up to 100
// characters are accepted at registration.
func bcryptInput(plain string) []byte {
	b := []byte(plain)
	if len(b) > maxBcryptInput {
		b = b[:maxBcryptInput]
	}
	return b
}

// HashPassword returns a salted bcrypt hash using the given cost.  Every
// call produces a different digest for the same input.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword(bcryptInput(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword compares a plain password against a stored bcrypt hash.
// bcrypt re-hashes with the salt and cost embedded in hash and compares the
// results in constant time.  A corrupted or truncated hash is reported as
// a mismatch rather than an error.
func VerifyPassword(hash, plain string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(plain))
	if err == nil {
		return true
	}
	if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		log.Warn().Err(err).Msg("stored password hash could not be parsed")
	}
	return false
}
