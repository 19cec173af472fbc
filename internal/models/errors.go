package models

import "errors"

// Error classes surfaced to callers. Wrap with fmt.Errorf("...: %w") and
// test with errors.Is.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrPersistence  = errors.New("persistence error")
)
