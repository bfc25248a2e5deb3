package ledger

import (
	"context"
	"math"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
)

const (
	// Decimals is the number of decimal places between a lamport and one
	// SOL.
	Decimals = 9

	// LamportsPerSol is the fixed base-unit-per-display-unit divisor.
	LamportsPerSol = solana.LAMPORTS_PER_SOL
)

// Commitment is the confirmation strength a submission waits for.
type Commitment = rpc.ConfirmationStatusType

const (
	// CommitmentConfirmed is the level at which this system considers a
	// transaction settled.
	CommitmentConfirmed Commitment = rpc.ConfirmationStatusConfirmed

	// CommitmentFinalized is the strongest confirmation level.
	CommitmentFinalized Commitment = rpc.ConfirmationStatusFinalized
)

// Ledger is the capability set the transfer engine consumes. It is
// implemented by chain/solrpc for a live cluster and by fakes in tests.
type Ledger interface {
	// Balance returns the confirmed balance of addr in lamports.
	Balance(ctx context.Context, addr solana.PublicKey) (uint64, error)

	// TransferInstruction moves lamports from one account to another.
	TransferInstruction(from, to solana.PublicKey,
		lamports uint64) solana.Instruction

	// SettlementAccount derives the intermediate account a dispersal to
	// owner is routed through.
	SettlementAccount(owner solana.PublicKey) (solana.PublicKey, error)

	// EnsureAccountInstruction creates account for owner, paid by payer,
	// if it does not exist yet. Safe to include when it already exists.
	EnsureAccountInstruction(payer, account,
		owner solana.PublicKey) solana.Instruction

	// CloseAccountInstruction closes account, returning its balance to
	// destination under the given authority.
	CloseAccountInstruction(account, destination,
		authority solana.PublicKey) solana.Instruction

	// BuildTransaction compiles instructions into one transaction paid by
	// payer over a single recent blockhash.
	BuildTransaction(ctx context.Context, payer solana.PublicKey,
		instructions []solana.Instruction) (*solana.Transaction, error)

	// Submit signs tx with exactly the given signers and broadcasts it.
	Submit(ctx context.Context, tx *solana.Transaction,
		signers []solana.PrivateKey) (solana.Signature, error)

	// Confirm blocks until sig reaches the given commitment level or the
	// transaction is known to have failed.
	Confirm(ctx context.Context, sig solana.Signature,
		level Commitment) error
}

// MaxAmount is the largest display amount accepted anywhere an amount is
// configured. Its base units fit in an int64.
var MaxAmount = FromLamports(math.MaxInt64)

// ToLamports converts a display amount to base units, truncating anything
// below one lamport. Negative amounts convert to zero and amounts beyond
// the uint64 range saturate at math.MaxUint64.
func ToLamports(amount decimal.Decimal) uint64 {
	if !amount.IsPositive() {
		return 0
	}

	lamports := amount.Shift(Decimals).Truncate(0).BigInt()
	if !lamports.IsUint64() {
		return math.MaxUint64
	}

	return lamports.Uint64()
}

// FromLamports converts base units to a display amount.
func FromLamports(lamports uint64) decimal.Decimal {
	return decimal.NewFromBigInt(
		new(big.Int).SetUint64(lamports), -Decimals,
	)
}
