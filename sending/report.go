package sending

import (
	"github.com/PumpLamp/DisperseSol/metrics"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// Status is the final state of one wallet in a dispersal.
type Status string

const (
	StatusSucceeded Status = metrics.StatusSucceeded
	StatusSkipped   Status = metrics.StatusSkipped
	StatusFailed    Status = metrics.StatusFailed
)

// WalletResult is the result for one wallet.
type WalletResult struct {
	// Index is the wallet's 0-based position in the run.
	Index int

	Wallet solana.PublicKey

	// Amount is the resolved amount before the reserve buffer.
	Amount decimal.Decimal

	Status Status

	// Signature is set on success.
	Signature solana.Signature

	// Attempts is the number of submit attempts made.
	Attempts int

	// Err is set when the wallet was skipped or failed.
	Err error
}

// Report summarizes a dispersal run. Results are in wallet order.
type Report struct {
	Strategy string
	Results  []*WalletResult
}

// Count returns the number of wallets with the given status.
func (r *Report) Count(status Status) int {
	var n int
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}

	return n
}

// Total returns the summed amount of succeeded wallets.
func (r *Report) Total() decimal.Decimal {
	total := decimal.Zero
	for _, res := range r.Results {
		if res.Status == StatusSucceeded {
			total = total.Add(res.Amount)
		}
	}

	return total
}
