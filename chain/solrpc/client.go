package solrpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/lightningnetwork/lnd/clock"
	"golang.org/x/time/rate"
)

// Config holds configuration for the Solana JSON-RPC client.
type Config struct {
	// Endpoint is the JSON-RPC URL of the cluster.
	// Default: https://api.mainnet-beta.solana.com
	Endpoint string

	// RateLimit is the number of requests per second allowed.
	// Default: 10
	RateLimit int

	// RetryAttempts is the number of retries for failed read calls.
	// Default: 3
	RetryAttempts int

	// RetryDelay scales the linear wait between read retries.
	// Default: 500 milliseconds
	RetryDelay time.Duration

	// BlockhashTTL is how long a fetched blockhash is reused.
	// Default: 20 seconds
	BlockhashTTL time.Duration

	// PollInterval is how often signature statuses are polled while
	// waiting for confirmation.
	// Default: 500 milliseconds
	PollInterval time.Duration

	// ConfirmTimeout bounds a single confirmation wait.
	// Default: 60 seconds
	ConfirmTimeout time.Duration

	// SkipPreflight disables transaction simulation on send.
	SkipPreflight bool

	// Clock drives retry waits and cache expiry.
	Clock clock.Clock
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		Endpoint:       rpc.MainNetBeta_RPC,
		RateLimit:      10,
		RetryAttempts:  3,
		RetryDelay:     500 * time.Millisecond,
		BlockhashTTL:   20 * time.Second,
		PollInterval:   500 * time.Millisecond,
		ConfirmTimeout: 60 * time.Second,
		Clock:          clock.NewDefaultClock(),
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("rpc endpoint is required")
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("retry attempts must not be negative")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.ConfirmTimeout <= 0 {
		return fmt.Errorf("confirm timeout must be positive")
	}
	return nil
}

// Client is a rate limited Solana JSON-RPC client. Read calls are retried
// with linear backoff; sends are not, as resubmission is left to the caller.
type Client struct {
	cfg *Config

	rpc         *rpc.Client
	rateLimiter *rate.Limiter
}

// NewClient creates a new JSON-RPC client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewDefaultClock()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		cfg:         cfg,
		rpc:         rpc.New(cfg.Endpoint),
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimit),
	}, nil
}

// doRead runs a read call with rate limiting and retries.
func (c *Client) doRead(ctx context.Context, method string,
	call func(ctx context.Context) error) error {

	var lastErr error
	for attempt := 0; attempt <= c.cfg.RetryAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter error: %w", err)
		}

		lastErr = call(ctx)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) ||
			errors.Is(lastErr, context.DeadlineExceeded) {

			return lastErr
		}

		if attempt == c.cfg.RetryAttempts {
			break
		}

		delay := c.cfg.RetryDelay * time.Duration(attempt+1)
		log.Debugf("%s failed (attempt %d), retrying in %v: %v", method,
			attempt+1, delay, lastErr)

		select {
		case <-c.cfg.Clock.TickAfter(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", method,
		c.cfg.RetryAttempts+1, lastErr)
}

// GetBalance returns the balance of account in lamports.
func (c *Client) GetBalance(ctx context.Context, account solana.PublicKey,
	commitment rpc.CommitmentType) (uint64, error) {

	var balance uint64
	err := c.doRead(ctx, "getBalance", func(ctx context.Context) error {
		resp, err := c.rpc.GetBalance(ctx, account, commitment)
		if err != nil {
			return err
		}
		balance = resp.Value
		return nil
	})
	if err != nil {
		return 0, err
	}

	return balance, nil
}

// GetLatestBlockhash returns the most recent blockhash.
func (c *Client) GetLatestBlockhash(ctx context.Context,
	commitment rpc.CommitmentType) (solana.Hash, error) {

	var hash solana.Hash
	err := c.doRead(ctx, "getLatestBlockhash", func(ctx context.Context) error {
		resp, err := c.rpc.GetLatestBlockhash(ctx, commitment)
		if err != nil {
			return err
		}
		if resp.Value == nil {
			return fmt.Errorf("empty blockhash response")
		}
		hash = resp.Value.Blockhash
		return nil
	})
	if err != nil {
		return solana.Hash{}, err
	}

	return hash, nil
}

// GetSignatureStatus returns the status of sig, or nil if the node does not
// know the transaction yet.
func (c *Client) GetSignatureStatus(ctx context.Context,
	sig solana.Signature) (*rpc.SignatureStatusesResult, error) {

	var status *rpc.SignatureStatusesResult
	err := c.doRead(ctx, "getSignatureStatuses", func(ctx context.Context) error {
		resp, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			return err
		}
		if len(resp.Value) > 0 {
			status = resp.Value[0]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return status, nil
}

// SendTransaction broadcasts a signed transaction once.
func (c *Client) SendTransaction(ctx context.Context,
	tx *solana.Transaction) (solana.Signature, error) {

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return solana.Signature{}, fmt.Errorf("rate limiter error: %w", err)
	}

	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       c.cfg.SkipPreflight,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send "+
			"transaction: %w", err)
	}

	return sig, nil
}
