package submit

import (
	"context"
	"fmt"
	"time"

	"github.com/PumpLamp/DisperseSol/ledger"
	"github.com/PumpLamp/DisperseSol/metrics"
	"github.com/gagliardetto/solana-go"
	"github.com/lightningnetwork/lnd/clock"
)

const (
	// DefaultMaxRetry is the number of retries after the first attempt.
	DefaultMaxRetry = 3

	// DefaultBaseDelay scales the linear backoff between attempts.
	DefaultBaseDelay = time.Second
)

// Backend sends and confirms signed transactions.
type Backend interface {
	Submit(ctx context.Context, tx *solana.Transaction,
		signers []solana.PrivateKey) (solana.Signature, error)

	Confirm(ctx context.Context, sig solana.Signature,
		level ledger.Commitment) error
}

// Config holds the configuration for a Submitter.
type Config struct {
	// Backend sends and confirms transactions.
	Backend Backend

	// MaxRetry is the number of retries after the first attempt, so a
	// transaction is tried at most MaxRetry+1 times.
	MaxRetry int

	// BaseDelay is multiplied by the attempt number to get the wait
	// before the next attempt.
	BaseDelay time.Duration

	// Commitment is the level a transaction must reach to succeed.
	Commitment ledger.Commitment

	// Flow labels metrics and logs.
	Flow string

	// Clock drives retry waits.
	Clock clock.Clock

	// Metrics is optional.
	Metrics *metrics.Metrics
}

// DefaultConfig returns a configuration with the default retry policy.
func DefaultConfig(backend Backend, flow string) *Config {
	return &Config{
		Backend:    backend,
		MaxRetry:   DefaultMaxRetry,
		BaseDelay:  DefaultBaseDelay,
		Commitment: ledger.CommitmentConfirmed,
		Flow:       flow,
		Clock:      clock.NewDefaultClock(),
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Backend == nil {
		return fmt.Errorf("backend is required")
	}
	if c.MaxRetry < 0 {
		return fmt.Errorf("max retry must not be negative")
	}
	if c.BaseDelay < 0 {
		return fmt.Errorf("base delay must not be negative")
	}
	if c.Clock == nil {
		return fmt.Errorf("clock is required")
	}

	return nil
}

// Outcome is the result of taking one transaction through submission. It
// is never an error return; a failed outcome carries its reason in Err.
type Outcome struct {
	// Signature is set when the transaction reached the commitment.
	Signature solana.Signature

	// Failed is set once the retry budget is spent.
	Failed bool

	// Attempts is the number of submit attempts made.
	Attempts int

	// Err is a *SubmissionError when Failed is set.
	Err error
}

// attempt is the state carried from one try to the next.
type attempt struct {
	tx      *solana.Transaction
	signers []solana.PrivateKey

	// number is the 0-based index of the next try.
	number int

	// made counts tries that reached the backend.
	made int

	lastErr error
}

// Submitter signs, submits and confirms transactions with bounded linear
// retries. It is safe for concurrent use.
type Submitter struct {
	cfg *Config
}

// New creates a new Submitter.
func New(cfg *Config) (*Submitter, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Submitter{
		cfg: cfg,
	}, nil
}

// Submit takes tx through send and confirm, retrying the very same
// transaction and signer set until it succeeds or MaxRetry retries have
// failed.
func (s *Submitter) Submit(ctx context.Context, tx *solana.Transaction,
	signers []solana.PrivateKey) Outcome {

	a := &attempt{
		tx:      tx,
		signers: signers,
	}

	for {
		if err := ctx.Err(); err != nil {
			return s.fail(a, err)
		}

		sig, err := s.try(ctx, a)
		if err == nil {
			s.cfg.Metrics.ObserveSubmission(s.cfg.Flow, false)

			log.Debugf("[%s] Transaction %v confirmed after %d "+
				"attempt(s)", s.cfg.Flow, sig, a.made)

			return Outcome{
				Signature: sig,
				Attempts:  a.made,
			}
		}
		a.lastErr = err

		if a.number >= s.cfg.MaxRetry {
			return s.fail(a, err)
		}

		delay := s.cfg.BaseDelay * time.Duration(a.number+1)
		log.Warnf("[%s] Attempt %d failed, retrying in %v: %v",
			s.cfg.Flow, a.number+1, delay, err)

		select {
		case <-s.cfg.Clock.TickAfter(delay):
		case <-ctx.Done():
			return s.fail(a, ctx.Err())
		}

		a.number++
		s.cfg.Metrics.ObserveRetry(s.cfg.Flow)
	}
}

// try makes a single send-and-confirm attempt.
func (s *Submitter) try(ctx context.Context,
	a *attempt) (solana.Signature, error) {

	a.made++
	sig, err := s.cfg.Backend.Submit(ctx, a.tx, a.signers)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("send: %w", err)
	}

	err = s.cfg.Backend.Confirm(ctx, sig, s.cfg.Commitment)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("confirm %v: %w", sig,
			err)
	}

	return sig, nil
}

// fail builds the terminal outcome for a.
func (s *Submitter) fail(a *attempt, err error) Outcome {
	if a.lastErr != nil && err != a.lastErr {
		err = fmt.Errorf("%w (last attempt: %v)", err, a.lastErr)
	}

	s.cfg.Metrics.ObserveSubmission(s.cfg.Flow, true)

	return Outcome{
		Failed:   true,
		Attempts: a.made,
		Err: &SubmissionError{
			Attempts: a.made,
			Err:      err,
		},
	}
}
