package receiving

import (
	"context"
	"fmt"

	"github.com/PumpLamp/DisperseSol/keyring"
	"github.com/PumpLamp/DisperseSol/ledger"
	"github.com/PumpLamp/DisperseSol/metrics"
	"github.com/PumpLamp/DisperseSol/submit"
	"github.com/gagliardetto/solana-go"
)

// DefaultBatchSize is the number of wallets swept per transaction.
const DefaultBatchSize = 8

// Submitter takes one transaction through submission.
type Submitter interface {
	Submit(ctx context.Context, tx *solana.Transaction,
		signers []solana.PrivateKey) submit.Outcome
}

// Config holds configuration for collections.
type Config struct {
	// Ledger builds instructions and transactions.
	Ledger ledger.Ledger

	// Oracle reads each wallet's balance.
	Oracle *ledger.Oracle

	// KeyRing holds the operating key and every wallet key.
	KeyRing *keyring.KeyRing

	// Submitter sends, confirms and retries transactions.
	Submitter Submitter

	// BatchSize is the maximum number of wallets per transaction.
	BatchSize int

	// Metrics is optional.
	Metrics *metrics.Metrics
}

// DefaultConfig returns a configuration with the default batch size.
func DefaultConfig() *Config {
	return &Config{
		BatchSize: DefaultBatchSize,
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
	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be positive")
	}
	return nil
}

// Receiver sweeps managed wallets back into the operating account.
type Receiver struct {
	cfg *Config
}

// New creates a new Receiver.
func New(cfg *Config) (*Receiver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Receiver{
		cfg: cfg,
	}, nil
}
