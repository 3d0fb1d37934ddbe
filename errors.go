package verifycache

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned (wrapped in a ValidationError) by Open.
var (
	// ErrInvalidTTL is returned when the configured TTL is negative.
	ErrInvalidTTL = errors.New("invalid ttl")

	// ErrInvalidMaxEntries is returned when the configured capacity is not positive.
	ErrInvalidMaxEntries = errors.New("invalid max entries")

	// ErrInvalidFileName is returned when the cache file name is empty or contains a path separator.
	ErrInvalidFileName = errors.New("invalid cache file name")
)

// ValidationError represents one or more configuration errors detected
// while opening a cache. These are the only errors a Cache ever reports;
// operational failures degrade silently instead.
type ValidationError struct {
	Errors []error
}

// Error implements the error interface.
func (ve *ValidationError) Error() string {
	if len(ve.Errors) == 0 {
		return "validation failed"
	}
	if len(ve.Errors) == 1 {
		return fmt.Sprintf("validation failed: %v", ve.Errors[0])
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "validation failed with %d errors:\n", len(ve.Errors))
	for i, err := range ve.Errors {
		fmt.Fprintf(&buf, "  %d. %v\n", i+1, err)
	}
	return buf.String()
}

// Unwrap returns the underlying errors for use with errors.Is and errors.As.
func (ve *ValidationError) Unwrap() []error {
	return ve.Errors
}

// newValidationError creates a ValidationError from a slice of errors.
// Returns nil if the slice is empty.
func newValidationError(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: errs}
}
