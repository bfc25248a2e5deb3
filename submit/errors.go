package submit

import (
	"errors"
	"fmt"
)

// ErrSubmissionFailed is matched by every terminal submission failure.
var ErrSubmissionFailed = errors.New("submission failed")

// SubmissionError is the terminal failure of one transaction after the
// retry budget is spent or the context ends.
type SubmissionError struct {
	// Attempts is the number of submit attempts made.
	Attempts int

	// Err is the error of the last attempt.
	Err error
}

// Error implements the error interface.
func (e *SubmissionError) Error() string {
	return fmt.Sprintf("%v after %d attempt(s): %v", ErrSubmissionFailed,
		e.Attempts, e.Err)
}

// Is makes the error match ErrSubmissionFailed.
func (e *SubmissionError) Is(target error) bool {
	return target == ErrSubmissionFailed
}

// Unwrap returns the error of the last attempt.
func (e *SubmissionError) Unwrap() error {
	return e.Err
}
