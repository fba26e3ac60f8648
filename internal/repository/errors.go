package repository

import "errors"

// Postgres errors are translated to these by the pgx implementation; the memory store returns them
// directly.
var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
	// ErrConflict is a serialization failure; the caller may retry the whole operation.
	ErrConflict = errors.New("concurrent update conflict")
)
