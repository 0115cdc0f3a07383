package repository

import "errors"

// Storage-level errors. Services translate these into their own sentinels so
// handlers never depend on this package directly.
var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrDuplicateToken = errors.New("token already exists")
)
