package amount

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/PumpLamp/DisperseSol/ledger"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// DefaultThreshold is the smallest amount a wallet is ever sent. It equals
// the reserve kept back to fund the settlement account.
var DefaultThreshold = decimal.RequireFromString("0.002")

// Strategy decides how much each wallet receives in one dispersal run.
// Implementations must be safe for concurrent use.
type Strategy interface {
	// Resolve returns the amount, in display units, for the wallet at the
	// given 0-based position.
	Resolve(index int, wallet solana.PublicKey) decimal.Decimal

	// Name identifies the strategy in logs and summaries.
	Name() string
}

// ParseAmount parses operator input such as "0.05" into an amount.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount is required")
	}

	amt, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if amt.IsNegative() {
		return decimal.Zero, fmt.Errorf("amount %q is negative", s)
	}
	if amt.GreaterThan(ledger.MaxAmount) {
		return decimal.Zero, fmt.Errorf("%w: %v > %v", ErrAmountTooLarge,
			amt, ledger.MaxAmount)
	}

	return amt, nil
}

// Uniform sends every wallet the same amount.
type Uniform struct {
	amount decimal.Decimal
}

// NewUniform creates a uniform strategy. The amount must not be below the
// threshold.
func NewUniform(amount, threshold decimal.Decimal) (*Uniform, error) {
	if amount.LessThan(threshold) {
		return nil, newConfigError("uniform amount", ErrBelowThreshold,
			"%v < %v", amount, threshold)
	}
	if amount.GreaterThan(ledger.MaxAmount) {
		return nil, newConfigError("uniform amount", ErrAmountTooLarge,
			"%v > %v", amount, ledger.MaxAmount)
	}

	return &Uniform{
		amount: amount,
	}, nil
}

// Resolve implements Strategy.
func (u *Uniform) Resolve(int, solana.PublicKey) decimal.Decimal {
	return u.amount
}

// Name implements Strategy.
func (u *Uniform) Name() string {
	return "uniform"
}

// RandomRange draws an independent amount for every wallet from [min, max).
type RandomRange struct {
	min uint64
	max uint64

	rng *rand.Rand
	mu  sync.Mutex
}

// NewRandomRange creates a random range strategy. A nil rng seeds a fresh
// source from the current time.
func NewRandomRange(min, max, threshold decimal.Decimal,
	rng *rand.Rand) (*RandomRange, error) {

	if min.GreaterThan(max) {
		return nil, newConfigError("random range", ErrInvalidRange,
			"min %v > max %v", min, max)
	}
	if min.LessThan(threshold) {
		return nil, newConfigError("random range", ErrBelowThreshold,
			"min %v < %v", min, threshold)
	}
	if max.GreaterThan(ledger.MaxAmount) {
		return nil, newConfigError("random range", ErrAmountTooLarge,
			"max %v > %v", max, ledger.MaxAmount)
	}

	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &RandomRange{
		min: ledger.ToLamports(min),
		max: ledger.ToLamports(max),
		rng: rng,
	}, nil
}

// Resolve implements Strategy. Draws are truncated to lamport precision.
func (r *RandomRange) Resolve(index int, wallet solana.PublicKey) decimal.Decimal {
	if r.max <= r.min {
		return ledger.FromLamports(r.min)
	}

	r.mu.Lock()
	offset := uint64(r.rng.Int63n(int64(r.max - r.min)))
	r.mu.Unlock()

	amt := ledger.FromLamports(r.min + offset)
	log.Debugf("Drew %v SOL for wallet %d (%v)", amt, index+1, wallet)

	return amt
}

// Name implements Strategy.
func (r *RandomRange) Name() string {
	return "random"
}

// Bounds returns the configured range in display units.
func (r *RandomRange) Bounds() (decimal.Decimal, decimal.Decimal) {
	return ledger.FromLamports(r.min), ledger.FromLamports(r.max)
}

var (
	_ Strategy = (*Uniform)(nil)
	_ Strategy = (*RandomRange)(nil)
	_ Strategy = (*FileSourced)(nil)
)
