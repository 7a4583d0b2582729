// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// auth service and handlers to distinguish between different failure
// scenarios without inspecting driver errors themselves.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrUserExists is returned when an insert hits the unique index on
// users.username. It is the authoritative duplicate signal; a prior
// lookup only short-circuits the common case.
var ErrUserExists = errors.New("user already exists")

// ErrUserNotFound is returned when no user matches a lookup.
var ErrUserNotFound = errors.New("user not found")

// ErrTaskNotFound is returned when no task matches the given id.
var ErrTaskNotFound = errors.New("task not found")

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

// isDuplicateKey reports whether err is a MySQL duplicate-entry error.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
