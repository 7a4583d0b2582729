package model

import "time"

// User represents an application user record as stored in the
// `users` table. Each field corresponds to a column in the
// database. PasswordHash never leaves the repository and auth service;
// handlers build their own response types with JSON tags.
//
// Fields:
//  ID           – primary key identifier of the user, immutable.
//  Username     – unique, case-sensitive login name (trimmed, 3-50 chars).
//  PasswordHash – bcrypt hashed password.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           uint64    // users.id
    Username     string    // users.username
    PasswordHash string    // users.password_hash
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}
