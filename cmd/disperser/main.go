package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer cancel()

	cliApp := newCLIApp(ctx, os.Stdin, os.Stdout)
	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "[disperser] %v\n", err)
		cancel()
		os.Exit(1)
	}
}

// newCLIApp creates the command line interface. Running it without a
// command opens the interactive menu.
func newCLIApp(ctx context.Context, in io.Reader, out io.Writer) *cli.App {
	cliApp := cli.NewApp()
	cliApp.Name = "disperser"
	cliApp.Usage = "disperse SOL to and collect SOL from a set of wallets"
	cliApp.Writer = out
	cliApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "configfile",
			Value: defaultConfigFile,
			Usage: "path to the INI config file",
		},
		cli.StringFlag{
			Name:  "rpc",
			Usage: "Solana JSON-RPC endpoint, overrides the config file",
		},
		cli.StringFlag{
			Name:  "walletfile",
			Usage: "wallet store, overrides the config file",
		},
		cli.StringFlag{
			Name: "debuglevel",
			Usage: "logging level for all subsystems " +
				"{trace, debug, info, warn, error, critical} or " +
				"subsys=level pairs, overrides the config file",
		},
	}

	withApp := func(run func(*cli.Context, *app) error) cli.ActionFunc {
		return func(c *cli.Context) error {
			a, err := setup(c, out)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.close(); err != nil {
					log.Errorf("Unable to stop client: %v", err)
				}
			}()

			return run(c, a)
		}
	}

	runMenu := withApp(func(_ *cli.Context, a *app) error {
		newMenu(a, in, out).run(ctx)
		return nil
	})

	cliApp.Action = runMenu
	cliApp.Commands = []cli.Command{
		{
			Name:  "disperse",
			Usage: "send SOL from the operating account to every wallet",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "strategy",
					Value: strategyFile,
					Usage: "amount strategy {file, uniform, random}",
				},
				cli.StringFlag{
					Name:  "amount",
					Usage: "SOL per wallet for the uniform strategy",
				},
				cli.StringFlag{
					Name:  "min",
					Usage: "lower SOL bound for the random strategy",
				},
				cli.StringFlag{
					Name:  "max",
					Usage: "upper SOL bound for the random strategy",
				},
				cli.StringFlag{
					Name:  "amountfile",
					Usage: "amount store for the file strategy",
				},
			},
			Action: withApp(func(c *cli.Context, a *app) error {
				if c.IsSet("amountfile") {
					a.cfg.AmountFile = c.String("amountfile")
				}

				return a.disperse(ctx, &strategyChoice{
					Name:   c.String("strategy"),
					Amount: c.String("amount"),
					Min:    c.String("min"),
					Max:    c.String("max"),
				})
			}),
		},
		{
			Name:  "collect",
			Usage: "sweep every wallet into the operating account",
			Action: withApp(func(_ *cli.Context, a *app) error {
				return a.collect(ctx)
			}),
		},
		{
			Name:  "balances",
			Usage: "show the operating and wallet balances",
			Action: withApp(func(_ *cli.Context, a *app) error {
				return a.balances(ctx)
			}),
		},
		{
			Name:  "genwallets",
			Usage: "generate a fresh wallet store",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "count",
					Value: 10,
					Usage: "number of wallets to generate",
				},
			},
			Action: withApp(func(c *cli.Context, a *app) error {
				return a.generate(c.Int("count"))
			}),
		},
		{
			Name:   "menu",
			Usage:  "open the interactive menu",
			Action: runMenu,
		},
	}

	return cliApp
}

// setup loads the configuration, applies the global flag overrides and
// configures logging.
func setup(c *cli.Context, out io.Writer) (*app, error) {
	cfg, err := loadConfig(
		c.GlobalString("configfile"), c.GlobalIsSet("configfile"),
	)
	if err != nil {
		return nil, err
	}

	if c.GlobalIsSet("rpc") {
		cfg.RPC = c.GlobalString("rpc")
	}
	if c.GlobalIsSet("walletfile") {
		cfg.WalletFile = c.GlobalString("walletfile")
	}
	if c.GlobalIsSet("debuglevel") {
		cfg.DebugLevel = c.GlobalString("debuglevel")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logs := newLogManager(out)
	if err := logs.setLevels(cfg.DebugLevel); err != nil {
		return nil, settingError("debuglevel", "%v", err)
	}

	return newApp(cfg, out), nil
}
