package storage

import "errors"

// Storage errors shared by all backends.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when input validation fails, e.g. a forecast
	// row without a model tag or with a non-finite point estimate.
	ErrInvalidInput = errors.New("invalid input")
)
