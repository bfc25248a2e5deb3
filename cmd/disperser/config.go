package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/PumpLamp/DisperseSol/amount"
	"github.com/PumpLamp/DisperseSol/chain/solrpc"
	"github.com/PumpLamp/DisperseSol/client"
	"github.com/PumpLamp/DisperseSol/keyring"
	"github.com/PumpLamp/DisperseSol/submit"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFile = "disperser.conf"
	defaultWalletFile = "wallets.txt"
	defaultAmountFile = "amounts.json"
	defaultDebugLevel = "info"
)

var errInvalidSetting = errors.New("invalid setting")

type submitConfig struct {
	MaxRetry       int           `long:"maxretry" ini-name:"maxretry" description:"Retries after the first submission attempt"`
	BaseDelay      time.Duration `long:"basedelay" ini-name:"basedelay" description:"Scales the linear wait between submission attempts"`
	ConfirmTimeout time.Duration `long:"confirmtimeout" ini-name:"confirmtimeout" description:"Upper bound on a single confirmation wait"`
}

type disperseConfig struct {
	MaxParallel int  `long:"maxparallel" ini-name:"maxparallel" description:"Maximum concurrent dispersals, 0 for no limit"`
	Reserve     bool `long:"reserve" ini-name:"reserve" description:"Account for in-flight dispersals when checking the operating balance"`
}

type metricsConfig struct {
	Listen string `long:"listen" ini-name:"listen" description:"Address to serve prometheus metrics on, empty to disable"`
}

// config is the on-disk configuration of the disperser, overridden by the
// global command line flags.
type config struct {
	RPC          string `long:"rpc" ini-name:"rpc" description:"Solana JSON-RPC endpoint"`
	RateLimit    int    `long:"ratelimit" ini-name:"ratelimit" description:"RPC requests per second"`
	OperatingKey string `long:"operatingkey" ini-name:"operatingkey" description:"Base58 secret of the operating account"`
	WalletFile   string `long:"walletfile" ini-name:"walletfile" description:"Wallet store with one address:secret per line"`
	AmountFile   string `long:"amountfile" ini-name:"amountfile" description:"Per-wallet amounts for the file strategy"`
	DebugLevel   string `long:"debuglevel" ini-name:"debuglevel" description:"Logging level for all subsystems, or subsys=level pairs"`

	Submit   *submitConfig   `group:"submit" namespace:"submit"`
	Disperse *disperseConfig `group:"disperse" namespace:"disperse"`
	Metrics  *metricsConfig  `group:"metrics" namespace:"metrics"`
}

// defaultConfig returns the configuration used when no file is present.
func defaultConfig() *config {
	rpcCfg := solrpc.DefaultConfig()

	return &config{
		RPC:        rpcCfg.Endpoint,
		RateLimit:  rpcCfg.RateLimit,
		WalletFile: defaultWalletFile,
		AmountFile: defaultAmountFile,
		DebugLevel: defaultDebugLevel,
		Submit: &submitConfig{
			MaxRetry:       submit.DefaultMaxRetry,
			BaseDelay:      submit.DefaultBaseDelay,
			ConfirmTimeout: rpcCfg.ConfirmTimeout,
		},
		Disperse: &disperseConfig{
			Reserve: true,
		},
		Metrics: &metricsConfig{},
	}
}

// loadConfig reads the INI file at path over the defaults. A missing file
// is only an error when the caller asked for it explicitly.
func loadConfig(path string, required bool) (*config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !required {
			return cfg, nil
		}
		return nil, fmt.Errorf("unable to read config file: %w", err)
	}

	parser := flags.NewParser(cfg, flags.None)
	err := flags.NewIniParser(parser).ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to parse config file %s: %w",
			path, err)
	}

	return cfg, nil
}

// validate checks the settings every command relies on.
func (c *config) validate() error {
	if c.WalletFile == "" {
		return settingError("walletfile", "must not be empty")
	}
	if c.Submit.MaxRetry < 0 {
		return settingError("submit.maxretry", "must not be negative")
	}
	if c.Submit.BaseDelay < 0 {
		return settingError("submit.basedelay", "must not be negative")
	}
	if c.Disperse.MaxParallel < 0 {
		return settingError("disperse.maxparallel",
			"must not be negative")
	}

	return nil
}

// clientConfig validates the chain settings and builds the client
// configuration from them.
func (c *config) clientConfig() (*client.Config, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}

	endpoint, err := url.Parse(c.RPC)
	if err != nil || endpoint.Host == "" ||
		(endpoint.Scheme != "http" && endpoint.Scheme != "https") {

		return nil, settingError("rpc", "%q is not an http(s) url",
			c.RPC)
	}

	if c.OperatingKey == "" {
		return nil, settingError("operatingkey", "must be set to the "+
			"operating account secret")
	}
	operating, err := keyring.DecodeSecret(c.OperatingKey)
	if err != nil {
		return nil, &amount.ConfigError{
			Setting: "operatingkey",
			Err:     err,
		}
	}

	cfg := client.DefaultConfig()
	cfg.RPC.Endpoint = c.RPC
	cfg.RPC.RateLimit = c.RateLimit
	cfg.RPC.ConfirmTimeout = c.Submit.ConfirmTimeout
	cfg.OperatingKey = operating
	cfg.MaxRetry = c.Submit.MaxRetry
	cfg.BaseDelay = c.Submit.BaseDelay
	cfg.MaxParallel = c.Disperse.MaxParallel
	cfg.ReserveBalances = c.Disperse.Reserve
	cfg.MetricsListen = c.Metrics.Listen

	if err := cfg.RPC.Validate(); err != nil {
		return nil, &amount.ConfigError{Setting: "rpc", Err: err}
	}

	return cfg, nil
}

// settingError reports an invalid configuration value.
func settingError(setting, format string, args ...interface{}) error {
	return &amount.ConfigError{
		Setting: setting,
		Err: fmt.Errorf("%w: %s", errInvalidSetting,
			fmt.Sprintf(format, args...)),
	}
}
