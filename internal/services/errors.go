package services

import (
	"errors"
	"sort"
	"strings"

	"github.com/jjudge-oj/accountsvc/internal/store"
)

var (
	// ErrNotFound is returned when no account matches the lookup.
	ErrNotFound = store.ErrNotFound
	// ErrInvalidCredentials covers unknown emails, wrong passwords and inactive accounts.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrIncorrectOldPassword is returned by ChangePassword when the current password does not verify.
	ErrIncorrectOldPassword = errors.New("old password is incorrect")
	// ErrNoSecurityQuestion is returned when recovery is requested for an account without a question.
	ErrNoSecurityQuestion = errors.New("no security question set for this account")
	// ErrIncorrectAnswer is returned when the security answer does not match.
	ErrIncorrectAnswer = errors.New("incorrect security answer")
)

// FieldErrors maps request field names to their validation messages.
type FieldErrors map[string][]string

// ValidationError reports one or more invalid request fields.
type ValidationError struct {
	Fields FieldErrors
}

func newValidationError() *ValidationError {
	return &ValidationError{Fields: FieldErrors{}}
}

// Add records a message against field.
func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = append(e.Fields[field], message)
}

// Empty reports whether no field errors were recorded.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

// Has reports whether field has at least one error.
func (e *ValidationError) Has(field string) bool {
	return len(e.Fields[field]) > 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+strings.Join(e.Fields[key], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// orNil returns e as an error only when it carries field errors.
func (e *ValidationError) orNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func fieldError(field, message string) *ValidationError {
	verr := newValidationError()
	verr.Add(field, message)
	return verr
}
