package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/PumpLamp/DisperseSol/amount"
	"github.com/PumpLamp/DisperseSol/chain/solrpc"
	"github.com/PumpLamp/DisperseSol/client"
	"github.com/PumpLamp/DisperseSol/keyring"
	"github.com/PumpLamp/DisperseSol/ledger"
	"github.com/PumpLamp/DisperseSol/receiving"
	"github.com/PumpLamp/DisperseSol/sending"
	"github.com/PumpLamp/DisperseSol/server"
	"github.com/PumpLamp/DisperseSol/submit"
	"github.com/btcsuite/btclog"
)

// Subsystem is the logging code of the command itself.
const Subsystem = "DISP"

var log = btclog.Disabled

// logManager owns the shared log backend and one logger per subsystem.
type logManager struct {
	backend *btclog.Backend
	loggers map[string]btclog.Logger
}

// newLogManager creates a logger for every package writing to w and hands
// each package its logger.
func newLogManager(w io.Writer) *logManager {
	m := &logManager{
		backend: btclog.NewBackend(w),
		loggers: make(map[string]btclog.Logger),
	}

	m.register(Subsystem, func(l btclog.Logger) { log = l })
	m.register(ledger.Subsystem, ledger.UseLogger)
	m.register(keyring.Subsystem, keyring.UseLogger)
	m.register(amount.Subsystem, amount.UseLogger)
	m.register(submit.Subsystem, submit.UseLogger)
	m.register(sending.Subsystem, sending.UseLogger)
	m.register(receiving.Subsystem, receiving.UseLogger)
	m.register(solrpc.Subsystem, solrpc.UseLogger)
	m.register(server.Subsystem, server.UseLogger)
	m.register(client.Subsystem, client.UseLogger)

	return m
}

func (m *logManager) register(subsystem string, use func(btclog.Logger)) {
	logger := m.backend.Logger(subsystem)
	logger.SetLevel(btclog.LevelInfo)

	m.loggers[subsystem] = logger
	use(logger)
}

// subsystems returns the registered subsystem codes in sorted order.
func (m *logManager) subsystems() []string {
	codes := make([]string, 0, len(m.loggers))
	for code := range m.loggers {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	return codes
}

// setLevels applies a debug level setting. The setting is
// either a single level applied to every subsystem, or a comma separated
// list of subsys=level pairs.
func (m *logManager) setLevels(levels string) error {
	if !strings.Contains(levels, ",") && !strings.Contains(levels, "=") {
		level, ok := btclog.LevelFromString(levels)
		if !ok {
			return fmt.Errorf("invalid debug level %q", levels)
		}

		for _, logger := range m.loggers {
			logger.SetLevel(level)
		}
		return nil
	}

	for _, pair := range strings.Split(levels, ",") {
		subsystem, levelStr, found := strings.Cut(pair, "=")
		if !found {
			return fmt.Errorf("invalid subsystem level pair %q, "+
				"want subsys=level", pair)
		}

		logger, ok := m.loggers[strings.TrimSpace(subsystem)]
		if !ok {
			return fmt.Errorf("unknown subsystem %q, supported "+
				"subsystems are %v", subsystem, m.subsystems())
		}

		level, ok := btclog.LevelFromString(strings.TrimSpace(levelStr))
		if !ok {
			return fmt.Errorf("invalid debug level %q for %s",
				levelStr, subsystem)
		}
		logger.SetLevel(level)
	}

	return nil
}
