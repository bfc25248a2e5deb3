package keyring

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedLine is returned when a wallet line is not of the form
	// address:secret.
	ErrMalformedLine = errors.New("malformed wallet line")

	// ErrInvalidSecret is returned when a secret does not decode into
	// valid key material.
	ErrInvalidSecret = errors.New("invalid secret key")

	// ErrAddressMismatch is returned in strict mode when the stored
	// address is not the one derived from the secret.
	ErrAddressMismatch = errors.New("address does not match secret")

	// ErrTooFewWallets is returned when generating fewer than two wallets.
	ErrTooFewWallets = errors.New("at least two wallets are required")
)

// ParseError describes a wallet store line that was skipped.
type ParseError struct {
	// Line is the 1-based line number in the wallet store.
	Line int

	// Content is the line with its secret column redacted.
	Content string

	// Err is the reason the line was skipped.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d (%s): %v", e.Line, e.Content, e.Err)
}

// Unwrap returns the underlying reason.
func (e *ParseError) Unwrap() error {
	return e.Err
}
