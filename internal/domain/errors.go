package domain

import "errors"

var (
	// ErrValidation marks requests rejected before any record is created.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks lookups that resolved to no record.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks state transitions rejected by the delivery state machine.
	ErrConflict = errors.New("conflict")
)
