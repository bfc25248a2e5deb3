package amount

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAmountStore is returned when the amount store is missing,
	// malformed or does not cover every wallet.
	ErrInvalidAmountStore = errors.New("invalid amount store")

	// ErrInvalidRange is returned when a random range has min > max.
	ErrInvalidRange = errors.New("invalid amount range")

	// ErrBelowThreshold is returned when a configured amount cannot cover
	// the minimum reserve.
	ErrBelowThreshold = errors.New("amount below minimum threshold")

	// ErrAmountTooLarge is returned when an amount exceeds
	// ledger.MaxAmount.
	ErrAmountTooLarge = errors.New("amount too large")
)

// ConfigError is an amount configuration problem found before any
// submission is attempted. It aborts the flow.
type ConfigError struct {
	// Setting names the offending setting or file.
	Setting string

	// Err is the underlying reason.
	Err error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Setting, e.Err)
}

// Unwrap returns the underlying reason.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// newConfigError wraps a sentinel with detail for a setting.
func newConfigError(setting string, sentinel error, format string,
	args ...interface{}) *ConfigError {

	return &ConfigError{
		Setting: setting,
		Err: fmt.Errorf("%w: %s", sentinel,
			fmt.Sprintf(format, args...)),
	}
}
