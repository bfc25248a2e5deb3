package main

import (
	"bytes"
	"testing"

	"github.com/PumpLamp/DisperseSol/sending"
	"github.com/PumpLamp/DisperseSol/submit"
	"github.com/btcsuite/btclog"
	"github.com/stretchr/testify/require"
)

// TestSetLevels tests the global and per-subsystem level forms.
func TestSetLevels(t *testing.T) {
	var buf bytes.Buffer
	logs := newLogManager(&buf)

	require.Contains(t, logs.subsystems(), Subsystem)
	require.Contains(t, logs.subsystems(), sending.Subsystem)

	require.NoError(t, logs.setLevels("debug"))
	for code, logger := range logs.loggers {
		require.Equal(t, btclog.LevelDebug, logger.Level(), code)
	}

	require.NoError(t, logs.setLevels("SEND=trace,SUBM=error"))
	require.Equal(t, btclog.LevelTrace,
		logs.loggers[sending.Subsystem].Level())
	require.Equal(t, btclog.LevelError,
		logs.loggers[submit.Subsystem].Level())
	require.Equal(t, btclog.LevelDebug, logs.loggers[Subsystem].Level())

	require.Error(t, logs.setLevels("loud"))
	require.Error(t, logs.setLevels("NOPE=debug"))
	require.Error(t, logs.setLevels("SEND=loud"))
	require.Error(t, logs.setLevels("SEND,SUBM=info"))
}
