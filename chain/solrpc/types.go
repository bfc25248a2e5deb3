package solrpc

import (
	"errors"
	"fmt"

	"github.com/PumpLamp/DisperseSol/ledger"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

var (
	// ErrTransactionFailed is matched by a transaction the cluster
	// executed with an error.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrConfirmationTimeout is returned when a transaction does not
	// reach the requested commitment in time.
	ErrConfirmationTimeout = errors.New("confirmation timed out")

	// ErrMissingSigner is returned when a required signer is not among the
	// keys handed to Submit.
	ErrMissingSigner = errors.New("missing signer")
)

// TransactionError reports the on-chain error of an executed transaction.
type TransactionError struct {
	Signature solana.Signature

	// Detail is the error object returned by the node.
	Detail interface{}
}

// Error implements the error interface.
func (e *TransactionError) Error() string {
	return fmt.Sprintf("%v: %v: %v", ErrTransactionFailed, e.Signature,
		e.Detail)
}

// Is makes the error match ErrTransactionFailed.
func (e *TransactionError) Is(target error) bool {
	return target == ErrTransactionFailed
}

// commitmentRank orders confirmation levels from weakest to strongest.
var commitmentRank = map[rpc.ConfirmationStatusType]int{
	rpc.ConfirmationStatusProcessed: 1,
	rpc.ConfirmationStatusConfirmed: 2,
	rpc.ConfirmationStatusFinalized: 3,
}

// reached reports whether status is at least as strong as level.
func reached(status, level ledger.Commitment) bool {
	have, ok := commitmentRank[status]
	if !ok {
		return false
	}

	return have >= commitmentRank[level]
}

// wrappedSolMint is the native mint settlement accounts are created for.
var wrappedSolMint = solana.MustPublicKeyFromBase58(
	"So11111111111111111111111111111111111111112",
)
