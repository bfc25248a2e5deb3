package main

import (
	"context"
	"fmt"
	"io"

	"github.com/PumpLamp/DisperseSol/amount"
	"github.com/PumpLamp/DisperseSol/client"
	"github.com/PumpLamp/DisperseSol/keyring"
	"github.com/shopspring/decimal"
)

const (
	strategyFile    = "file"
	strategyUniform = "uniform"
	strategyRandom  = "random"
)

// strategyChoice is an amount strategy as entered by the user, before it
// is validated.
type strategyChoice struct {
	Name   string
	Amount string
	Min    string
	Max    string
}

// build validates the choice and creates the strategy for walletCount
// wallets.
func (s *strategyChoice) build(amountFile string, threshold decimal.Decimal,
	walletCount int) (amount.Strategy, error) {

	switch s.Name {
	case strategyFile:
		strategy, err := amount.LoadFileSourced(
			amountFile, threshold, walletCount,
		)
		if err != nil {
			return nil, err
		}
		return strategy, nil

	case strategyUniform:
		amt, err := parseSetting("amount", s.Amount)
		if err != nil {
			return nil, err
		}
		strategy, err := amount.NewUniform(amt, threshold)
		if err != nil {
			return nil, err
		}
		return strategy, nil

	case strategyRandom:
		min, err := parseSetting("min", s.Min)
		if err != nil {
			return nil, err
		}
		max, err := parseSetting("max", s.Max)
		if err != nil {
			return nil, err
		}
		strategy, err := amount.NewRandomRange(min, max, threshold, nil)
		if err != nil {
			return nil, err
		}
		return strategy, nil

	default:
		return nil, settingError("strategy", "unknown strategy %q, "+
			"want %s, %s or %s", s.Name, strategyFile,
			strategyUniform, strategyRandom)
	}
}

func parseSetting(setting, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, settingError(setting, "must be set")
	}

	amt, err := amount.ParseAmount(value)
	if err != nil {
		return decimal.Zero, &amount.ConfigError{
			Setting: setting,
			Err:     err,
		}
	}

	return amt, nil
}

// runner executes the flows offered by the command line and the menu.
type runner interface {
	generate(count int) error
	disperse(ctx context.Context, choice *strategyChoice) error
	collect(ctx context.Context) error
	balances(ctx context.Context) error
}

// app runs flows against the configured cluster. The chain client is only
// created once a flow needs it, so wallet generation works without chain
// settings.
type app struct {
	cfg *config
	out io.Writer

	client *client.Client
}

func newApp(cfg *config, out io.Writer) *app {
	return &app{
		cfg: cfg,
		out: out,
	}
}

func (a *app) chainClient() (*client.Client, error) {
	if a.client != nil {
		return a.client, nil
	}

	clientCfg, err := a.cfg.clientConfig()
	if err != nil {
		return nil, err
	}

	c, err := client.New(clientCfg)
	if err != nil {
		return nil, err
	}
	if err := c.Start(); err != nil {
		return nil, err
	}

	log.Infof("Operating account %v on %s", c.OperatingAddress(),
		a.cfg.RPC)

	a.client = c
	return c, nil
}

// close releases the chain client, if one was created.
func (a *app) close() error {
	if a.client == nil {
		return nil
	}

	return a.client.Stop()
}

// loadWallets reads the wallet store, refusing an empty one.
func (a *app) loadWallets(c *client.Client) (*keyring.Registry, error) {
	reg, err := c.LoadWallets(a.cfg.WalletFile)
	if err != nil {
		return nil, err
	}
	if reg.Len() == 0 {
		return nil, fmt.Errorf("no usable wallets in %s", reg.Path())
	}

	return reg, nil
}

func (a *app) generate(count int) error {
	result, err := keyring.GenerateWallets(&keyring.GenerateConfig{
		WalletPath: a.cfg.WalletFile,
		AmountPath: a.cfg.AmountFile,
		Count:      count,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Generated %d wallets in %s\n",
		len(result.Wallets), a.cfg.WalletFile)
	if result.BackupPath != "" {
		fmt.Fprintf(a.out, "Previous wallets backed up to %s\n",
			result.BackupPath)
	}

	return nil
}

func (a *app) disperse(ctx context.Context, choice *strategyChoice) error {
	c, err := a.chainClient()
	if err != nil {
		return err
	}

	reg, err := a.loadWallets(c)
	if err != nil {
		return err
	}

	strategy, err := choice.build(a.cfg.AmountFile, c.Threshold(),
		reg.Len())
	if err != nil {
		return err
	}

	report := c.Disperse(ctx, reg, strategy)
	fmt.Fprintln(a.out, renderDispersal(report))

	return nil
}

func (a *app) collect(ctx context.Context) error {
	c, err := a.chainClient()
	if err != nil {
		return err
	}

	reg, err := a.loadWallets(c)
	if err != nil {
		return err
	}

	report := c.Collect(ctx, reg)
	fmt.Fprintln(a.out, renderCollection(report))

	return nil
}

func (a *app) balances(ctx context.Context) error {
	c, err := a.chainClient()
	if err != nil {
		return err
	}

	reg, err := a.loadWallets(c)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, renderBalances(c.Balances(ctx, reg)))

	return nil
}

var _ runner = (*app)(nil)
