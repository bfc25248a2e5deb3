package sending

import (
	"errors"
	"fmt"

	"github.com/PumpLamp/DisperseSol/ledger"
	"github.com/gagliardetto/solana-go"
)

var (
	// ErrInsufficientFunds is matched by every InsufficientFundsError.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrKeyNotFound is returned when a required signer is not held by
	// the key ring.
	ErrKeyNotFound = errors.New("key not found")
)

// InsufficientFundsError is returned when the operating account cannot
// cover one wallet's dispersal. Only that wallet is skipped.
type InsufficientFundsError struct {
	// Wallet is the destination that was skipped.
	Wallet solana.PublicKey

	// Balance is the operating balance observed by the guard.
	Balance uint64

	// Reserved is the part of Balance held by in-flight dispersals.
	Reserved uint64

	// Required is the amount plus the safety margin.
	Required uint64
}

// Error implements the error interface.
func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("%v for %v: balance %v SOL (%v reserved), "+
		"need %v SOL", ErrInsufficientFunds, e.Wallet,
		ledger.FromLamports(e.Balance), ledger.FromLamports(e.Reserved),
		ledger.FromLamports(e.Required))
}

// Is makes the error match ErrInsufficientFunds.
func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}
