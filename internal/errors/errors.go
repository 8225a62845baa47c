// Package errors provides domain-specific error types for farmanet.
//
// These types carry structured context (operation, entity) that lets the
// service layer turn persistence failures into protocol error responses
// without string matching.
package errors

import (
	"errors"
	"fmt"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicate          = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidState       = errors.New("invalid state transition")
	ErrUnknownAction      = errors.New("unknown action")
	ErrSessionClosed      = errors.New("session is closed")
)

// ── Structured error types ───────────────────────────────────────────

// StoreError represents a failure in a persistence operation.
type StoreError struct {
	Op     string // operation: "insert", "update", "delete", "select"
	Entity string // entity involved: "user", "patient", ...
	Err    error  // underlying error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s %s: %v", e.Op, e.Entity, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// FieldError represents a missing or malformed request payload field.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("missing or invalid field %q", e.Field)
}

// ── Constructors ─────────────────────────────────────────────────────

// WrapStore creates a StoreError around err.
func WrapStore(op, entity string, err error) *StoreError {
	return &StoreError{Op: op, Entity: entity, Err: err}
}

// MissingField creates a FieldError for a required payload field.
func MissingField(field string) *FieldError {
	return &FieldError{Field: field}
}

// ── Classification helpers ───────────────────────────────────────────

// IsNotFound reports whether err means the requested entity is absent.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// ── Re-exports for convenience ───────────────────────────────────────
//
// These allow callers to use farmanet/internal/errors as a drop-in
// replacement for the standard library in common operations.

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }
