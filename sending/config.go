package sending

import (
	"context"
	"fmt"

	"github.com/PumpLamp/DisperseSol/keyring"
	"github.com/PumpLamp/DisperseSol/ledger"
	"github.com/PumpLamp/DisperseSol/metrics"
	"github.com/PumpLamp/DisperseSol/submit"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

var (
	// DefaultReserveBuffer is kept back from every dispersal to fund the
	// settlement account.
	DefaultReserveBuffer = decimal.RequireFromString("0.002")

	// DefaultSafetyMargin is the headroom the operating account must
	// keep beyond each dispersal amount.
	DefaultSafetyMargin = decimal.RequireFromString("0.01")
)

// Submitter takes one transaction through submission.
type Submitter interface {
	Submit(ctx context.Context, tx *solana.Transaction,
		signers []solana.PrivateKey) submit.Outcome
}

// Config holds configuration for dispersals.
type Config struct {
	// Ledger builds instructions and transactions.
	Ledger ledger.Ledger

	// Oracle reads the operating balance for the funds guard.
	Oracle *ledger.Oracle

	// KeyRing holds the operating key and every wallet key.
	KeyRing *keyring.KeyRing

	// Submitter sends, confirms and retries transactions.
	Submitter Submitter

	// ReserveBuffer is subtracted from each amount before transfer.
	ReserveBuffer decimal.Decimal

	// SafetyMargin is added to each amount by the funds guard.
	SafetyMargin decimal.Decimal

	// MaxParallel bounds concurrent wallet tasks. Zero means one task
	// per wallet with no limit.
	MaxParallel int

	// ReserveBalances makes the funds guard account for amounts
	// promised to in-flight dispersals.
	ReserveBalances bool

	// Metrics is optional.
	Metrics *metrics.Metrics
}

// DefaultConfig returns a configuration with the default reserve buffer,
// safety margin and balance reservations turned on.
func DefaultConfig() *Config {
	return &Config{
		ReserveBuffer:   DefaultReserveBuffer,
		SafetyMargin:    DefaultSafetyMargin,
		ReserveBalances: true,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Ledger == nil {
		return fmt.Errorf("ledger required")
	}
	if c.Oracle == nil {
		return fmt.Errorf("balance oracle required")
	}
	if c.KeyRing == nil {
		return fmt.Errorf("key ring required")
	}
	if c.Submitter == nil {
		return fmt.Errorf("submitter required")
	}
	if c.ReserveBuffer.IsNegative() {
		return fmt.Errorf("reserve buffer must not be negative")
	}
	if c.SafetyMargin.IsNegative() {
		return fmt.Errorf("safety margin must not be negative")
	}
	if c.MaxParallel < 0 {
		return fmt.Errorf("max parallel must not be negative")
	}
	return nil
}

// Sender runs dispersals from the operating account to managed wallets.
type Sender struct {
	cfg *Config

	reserve uint64
	margin  uint64
}

// New creates a new Sender.
func New(cfg *Config) (*Sender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Sender{
		cfg:     cfg,
		reserve: ledger.ToLamports(cfg.ReserveBuffer),
		margin:  ledger.ToLamports(cfg.SafetyMargin),
	}, nil
}
