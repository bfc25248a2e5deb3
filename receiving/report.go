package receiving

import (
	"github.com/gagliardetto/solana-go"
)

// BatchResult is the result of one submitted batch.
type BatchResult struct {
	// Number is the 1-based batch number in the run.
	Number int

	// Wallets are the swept wallets in batch order.
	Wallets []solana.PublicKey

	// Lamports is the total swept.
	Lamports uint64

	Signature solana.Signature
	Attempts  int
	Failed    bool
	Err       error
}

// First returns the batch's first wallet, used to refer to the batch in
// diagnostics.
func (b *BatchResult) First() solana.PublicKey {
	if len(b.Wallets) == 0 {
		return solana.PublicKey{}
	}

	return b.Wallets[0]
}

// SkippedWallet is a wallet left out of collection.
type SkippedWallet struct {
	Index  int
	Wallet solana.PublicKey
	Err    error
}

// Report summarizes a collection run.
type Report struct {
	Batches []*BatchResult
	Skipped []*SkippedWallet
}

// Succeeded returns the number of wallets in confirmed batches.
func (r *Report) Succeeded() int {
	var n int
	for _, b := range r.Batches {
		if !b.Failed {
			n += len(b.Wallets)
		}
	}

	return n
}

// Failed returns the number of wallets in failed batches.
func (r *Report) Failed() int {
	var n int
	for _, b := range r.Batches {
		if b.Failed {
			n += len(b.Wallets)
		}
	}

	return n
}

// Collected returns the lamports swept by confirmed batches.
func (r *Report) Collected() uint64 {
	var total uint64
	for _, b := range r.Batches {
		if !b.Failed {
			total += b.Lamports
		}
	}

	return total
}
