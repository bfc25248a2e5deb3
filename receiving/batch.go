package receiving

import (
	"fmt"

	"github.com/PumpLamp/DisperseSol/keyring"
	"github.com/PumpLamp/DisperseSol/ledger"
	"github.com/gagliardetto/solana-go"
)

// Entry is one wallet's full-balance sweep.
type Entry struct {
	Wallet   *keyring.Credential
	Lamports uint64
}

// Batch accumulates sweeps that settle together in one transaction.
type Batch struct {
	capacity int
	entries  []Entry
}

// NewBatch creates an empty batch holding up to capacity entries.
func NewBatch(capacity int) *Batch {
	return &Batch{
		capacity: capacity,
		entries:  make([]Entry, 0, capacity),
	}
}

// Add appends a sweep. It fails once the batch is full.
func (b *Batch) Add(wallet *keyring.Credential, lamports uint64) error {
	if b.Full() {
		return fmt.Errorf("batch is full (%d entries)", b.capacity)
	}

	b.entries = append(b.entries, Entry{
		Wallet:   wallet,
		Lamports: lamports,
	})

	return nil
}

// Full reports whether the batch has reached capacity.
func (b *Batch) Full() bool {
	return len(b.entries) >= b.capacity
}

// Len returns the number of entries.
func (b *Batch) Len() int {
	return len(b.entries)
}

// Entries returns the entries in insertion order.
func (b *Batch) Entries() []Entry {
	return append([]Entry(nil), b.entries...)
}

// Total returns the summed lamports of every entry.
func (b *Batch) Total() uint64 {
	var total uint64
	for _, e := range b.entries {
		total += e.Lamports
	}

	return total
}

// Reset empties the batch for reuse.
func (b *Batch) Reset() {
	b.entries = b.entries[:0]
}

// Instructions returns one transfer into destination per entry.
func (b *Batch) Instructions(l ledger.Ledger,
	destination solana.PublicKey) []solana.Instruction {

	instructions := make([]solana.Instruction, 0, len(b.entries))
	for _, e := range b.entries {
		instructions = append(instructions, l.TransferInstruction(
			e.Wallet.PublicKey(), destination, e.Lamports,
		))
	}

	return instructions
}

// Signers returns the signer set: the operating key, which pays the fee,
// followed by every included wallet.
func (b *Batch) Signers(operating solana.PrivateKey) []solana.PrivateKey {
	signers := make([]solana.PrivateKey, 0, len(b.entries)+1)
	signers = append(signers, operating)
	for _, e := range b.entries {
		signers = append(signers, e.Wallet.PrivateKey)
	}

	return signers
}
