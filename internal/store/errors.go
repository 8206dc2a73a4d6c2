package store

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when the email uniqueness constraint rejects a write.
var ErrDuplicateEmail = errors.New("email already exists")
