package client

import (
	"context"
	"fmt"
	"time"

	"github.com/PumpLamp/DisperseSol/amount"
	"github.com/PumpLamp/DisperseSol/chain/solrpc"
	"github.com/PumpLamp/DisperseSol/keyring"
	"github.com/PumpLamp/DisperseSol/ledger"
	"github.com/PumpLamp/DisperseSol/metrics"
	"github.com/PumpLamp/DisperseSol/receiving"
	"github.com/PumpLamp/DisperseSol/sending"
	"github.com/PumpLamp/DisperseSol/server"
	"github.com/PumpLamp/DisperseSol/submit"
	"github.com/gagliardetto/solana-go"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Config holds client configuration. It is built once by the caller and
// handed to every component; nothing is read from globals.
type Config struct {
	// RPC configures the Solana JSON-RPC backend. Ignored if Ledger is
	// set.
	RPC *solrpc.Config

	// Ledger overrides the JSON-RPC backend.
	Ledger ledger.Ledger

	// OperatingKey is the custodial operating account.
	OperatingKey solana.PrivateKey

	// Threshold is the smallest amount any wallet is sent.
	Threshold decimal.Decimal

	// ReserveBuffer is kept back from each dispersal.
	ReserveBuffer decimal.Decimal

	// SafetyMargin is the operating headroom per dispersal.
	SafetyMargin decimal.Decimal

	// MaxRetry and BaseDelay shape the submission retry policy.
	MaxRetry  int
	BaseDelay time.Duration

	// MaxParallel bounds concurrent dispersals; zero is unbounded.
	MaxParallel int

	// ReserveBalances accounts for in-flight dispersals in the funds
	// guard.
	ReserveBalances bool

	// BatchSize is the number of wallets swept per collection
	// transaction.
	BatchSize int

	// MetricsListen, if set, serves metrics on this address.
	MetricsListen string

	// Registry collects metrics. A fresh one is created if nil.
	Registry *prometheus.Registry

	// Clock drives retry waits.
	Clock clock.Clock
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *Config {
	return &Config{
		RPC:             solrpc.DefaultConfig(),
		Threshold:       amount.DefaultThreshold,
		ReserveBuffer:   sending.DefaultReserveBuffer,
		SafetyMargin:    sending.DefaultSafetyMargin,
		MaxRetry:        submit.DefaultMaxRetry,
		BaseDelay:       submit.DefaultBaseDelay,
		ReserveBalances: true,
		BatchSize:       receiving.DefaultBatchSize,
		Clock:           clock.NewDefaultClock(),
	}
}

// Client wires every component of the disperser together.
type Client struct {
	cfg *Config

	ledger  ledger.Ledger
	oracle  *ledger.Oracle
	keyRing *keyring.KeyRing
	metrics *metrics.Metrics
	server  *server.Server

	sender   *sending.Sender
	receiver *receiving.Receiver
}

// New creates a new client.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewDefaultClock()
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}

	// Chain backend.
	l := cfg.Ledger
	if l == nil {
		rpcClient, err := solrpc.NewClient(cfg.RPC)
		if err != nil {
			return nil, fmt.Errorf("failed to create rpc client: %w",
				err)
		}
		l = solrpc.NewLedger(rpcClient)
	}

	keyRing, err := keyring.New(&keyring.Config{
		Operating: cfg.OperatingKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create keyring: %w", err)
	}

	m, err := metrics.New(cfg.Registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	var metricsServer *server.Server
	if cfg.MetricsListen != "" {
		metricsServer, err = server.New(&server.Config{
			ListenAddr: cfg.MetricsListen,
			Gatherer:   cfg.Registry,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics "+
				"server: %w", err)
		}
	}

	oracle := ledger.NewOracle(l)

	newSubmitter := func(flow string) (*submit.Submitter, error) {
		subCfg := submit.DefaultConfig(l, flow)
		subCfg.MaxRetry = cfg.MaxRetry
		subCfg.BaseDelay = cfg.BaseDelay
		subCfg.Clock = cfg.Clock
		subCfg.Metrics = m

		return submit.New(subCfg)
	}

	disperseSubmitter, err := newSubmitter(metrics.FlowDisperse)
	if err != nil {
		return nil, fmt.Errorf("failed to init submitter: %w", err)
	}
	collectSubmitter, err := newSubmitter(metrics.FlowCollect)
	if err != nil {
		return nil, fmt.Errorf("failed to init submitter: %w", err)
	}

	sendingCfg := &sending.Config{
		Ledger:          l,
		Oracle:          oracle,
		KeyRing:         keyRing,
		Submitter:       disperseSubmitter,
		ReserveBuffer:   cfg.ReserveBuffer,
		SafetyMargin:    cfg.SafetyMargin,
		MaxParallel:     cfg.MaxParallel,
		ReserveBalances: cfg.ReserveBalances,
		Metrics:         m,
	}
	sender, err := sending.New(sendingCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to init sender: %w", err)
	}

	receivingCfg := &receiving.Config{
		Ledger:    l,
		Oracle:    oracle,
		KeyRing:   keyRing,
		Submitter: collectSubmitter,
		BatchSize: cfg.BatchSize,
		Metrics:   m,
	}
	receiver, err := receiving.New(receivingCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to init receiver: %w", err)
	}

	return &Client{
		cfg:      cfg,
		ledger:   l,
		oracle:   oracle,
		keyRing:  keyRing,
		metrics:  m,
		server:   metricsServer,
		sender:   sender,
		receiver: receiver,
	}, nil
}

// Start starts the client.
func (c *Client) Start() error {
	if c.server != nil {
		if err := c.server.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w",
				err)
		}
	}
	return nil
}

// Stop stops the client.
func (c *Client) Stop() error {
	if c.server != nil {
		return c.server.Stop()
	}
	return nil
}

// OperatingAddress returns the operating account's address.
func (c *Client) OperatingAddress() solana.PublicKey {
	return c.keyRing.OperatingAddress()
}

// Threshold returns the minimum dispersal amount.
func (c *Client) Threshold() decimal.Decimal {
	return c.cfg.Threshold
}

// LoadWallets reads the wallet store and makes its keys available for
// signing.
func (c *Client) LoadWallets(path string,
	opts ...keyring.LoadOption) (*keyring.Registry, error) {

	reg, err := keyring.Load(path, opts...)
	if err != nil {
		return nil, err
	}

	c.keyRing.Add(reg.Credentials()...)

	return reg, nil
}

// Disperse sends every wallet in reg the amount chosen by strategy.
func (c *Client) Disperse(ctx context.Context, reg *keyring.Registry,
	strategy amount.Strategy) *sending.Report {

	return c.sender.Disperse(ctx, reg.Credentials(), strategy)
}

// Collect sweeps every wallet in reg into the operating account.
func (c *Client) Collect(ctx context.Context,
	reg *keyring.Registry) *receiving.Report {

	return c.receiver.Collect(ctx, reg.Credentials())
}
