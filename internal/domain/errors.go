package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a unique constraint was violated.
	ErrAlreadyExists = errors.New("already exists")
	// ErrTerminalState indicates the order can no longer be modified.
	ErrTerminalState = errors.New("order is in a terminal state")
)

// ValidationError reports malformed or missing request fields. Details maps a
// field path to a short reason.
type ValidationError struct {
	Message string
	Details map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Details[k])
	}
	return e.Message + " (" + strings.Join(parts, ", ") + ")"
}

// NewValidationError builds a ValidationError with a single field detail.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{
		Message: "validation failed",
		Details: map[string]string{field: reason},
	}
}

// ProductsNotFoundError lists every requested product or variant id that did
// not resolve to a catalog row.
type ProductsNotFoundError struct {
	IDs []int64
}

func (e *ProductsNotFoundError) Error() string {
	ids := make([]string, 0, len(e.IDs))
	for _, id := range e.IDs {
		ids = append(ids, fmt.Sprintf("%d", id))
	}
	return "products not found: " + strings.Join(ids, ", ")
}

// Is lets errors.Is(err, ErrNotFound) match.
func (e *ProductsNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// PersistenceError wraps an unexpected database failure. Stack is the
// goroutine stack where the failure was classified, if captured.
type PersistenceError struct {
	Op    string
	Err   error
	Stack string
}

func (e *PersistenceError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
