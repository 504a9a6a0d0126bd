package focus

import (
	"errors"
	"fmt"
)

var (
	// ErrIncompleteFace is returned when a face lacks the eye and iris
	// points needed for gaze estimation.
	ErrIncompleteFace = errors.New("focus: face is missing eye or iris landmarks")

	// ErrDegenerateEye is returned when an eye's corner span is zero.
	ErrDegenerateEye = errors.New("focus: eye corner span is zero")

	// ErrNoProvider is returned when the machine has no landmark provider.
	ErrNoProvider = errors.New("focus: no landmark provider configured")
)

// DetectorError wraps a failure raised while classifying a frame.
type DetectorError struct {
	Err error
}

func (e *DetectorError) Error() string {
	return fmt.Sprintf("focus: detector: %v", e.Err)
}

func (e *DetectorError) Unwrap() error {
	return e.Err
}
