package kernel

import (
	"errors"
	"fmt"
)

// InitError is a fatal failure building runtime state from a document.
// It aborts session startup.
type InitError struct {
	// Code identifies the error category.
	Code InitErrorCode

	// Message is a human-readable description.
	Message string

	// Grid names the offending grid, when there is one.
	Grid string
}

// InitErrorCode categorizes init errors.
type InitErrorCode string

const (
	// ErrCodeDuplicateGrid indicates two grids share a name.
	ErrCodeDuplicateGrid InitErrorCode = "DUPLICATE_GRID"

	// ErrCodeUnsupportedTopology indicates a topology other than grid or linear.
	ErrCodeUnsupportedTopology InitErrorCode = "UNSUPPORTED_TOPOLOGY"

	// ErrCodeGridSizeMismatch indicates declared cells disagree with rows*cols.
	ErrCodeGridSizeMismatch InitErrorCode = "GRID_SIZE_MISMATCH"

	// ErrCodeUnknownGrid indicates a rule bound to a grid that does not exist.
	ErrCodeUnknownGrid InitErrorCode = "UNKNOWN_GRID"
)

// Error implements the error interface.
func (e *InitError) Error() string {
	if e.Grid != "" {
		return fmt.Sprintf("%s: %s (grid=%s)", e.Code, e.Message, e.Grid)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsInitError returns true if err is an InitError.
// Uses errors.As to handle wrapped errors.
func IsInitError(err error) bool {
	var ie *InitError
	return errors.As(err, &ie)
}

// InitErrorCodeOf returns the code of an InitError, or "".
func InitErrorCodeOf(err error) InitErrorCode {
	var ie *InitError
	if errors.As(err, &ie) {
		return ie.Code
	}
	return ""
}

// ErrManualClock is returned by Start on a runtime in manual clock mode.
var ErrManualClock = errors.New("runtime uses a manual clock")

// ErrNoInterval is returned by Start when the document declares no timer.
var ErrNoInterval = errors.New("document declares no timer-based docstep advance")
