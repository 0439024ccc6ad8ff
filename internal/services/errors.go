package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnauthorized is the root of every authentication failure.
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNoCredentials = fmt.Errorf("%w: authentication credentials were not provided", ErrUnauthorized)
	ErrInvalidToken  = fmt.Errorf("%w: invalid token", ErrUnauthorized)
	ErrTokenExpired  = fmt.Errorf("%w: token has expired", ErrUnauthorized)
	ErrUserInactive  = fmt.Errorf("%w: user inactive or deleted", ErrUnauthorized)

	// ErrInvalidCredentials is returned by Login for an unknown username and
	// for a wrong password alike.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrNotFound covers both absent records and records outside the
	// caller's scope.
	ErrNotFound = errors.New("not found")

	// ErrConflict is a uniqueness violation reported by the store that
	// validation did not catch.
	ErrConflict = errors.New("persistence conflict")
)

// ValidationError collects per-field messages for rejected input.
type ValidationError struct {
	Fields map[string][]string
}

// Add records msg against field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// Has reports whether field already carries a message.
func (e *ValidationError) Has(field string) bool {
	return len(e.Fields[field]) > 0
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(e.Fields[name], " ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// orNil returns e when it holds messages and nil otherwise.
func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
