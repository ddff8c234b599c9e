// Package repository holds the MySQL data access code.  Repositories
// return the sentinel errors below so that services can tell a missing
// row from a failed query without inspecting driver errors.
package repository

import "errors"

// ErrEmailExists is returned when an insert hits the unique index on
// usuarios.email.  Services translate it into a 409.
var ErrEmailExists = errors.New("email already exists")

// ErrUserNotFound is returned when no account matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// ErrPatientNotFound is returned when a patient id does not exist.
var ErrPatientNotFound = errors.New("patient not found")

// ErrResetNotFound is returned when a reset token is unknown, expired or
// already consumed.  The three cases are deliberately not distinguished.
var ErrResetNotFound = errors.New("reset token not found")
