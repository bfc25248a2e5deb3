package server

import (
	"io"
	"net/http"
	"testing"

	"github.com/PumpLamp/DisperseSol/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// TestServer_Metrics tests that counters are served over HTTP.
func TestServer_Metrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)
	m.ObserveWallet(metrics.FlowDisperse, metrics.StatusSucceeded)

	s, err := New(&Config{
		ListenAddr: "127.0.0.1:0",
		Gatherer:   reg,
	})
	require.NoError(t, err)
	require.Empty(t, s.Addr())

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	defer func() {
		require.NoError(t, s.Stop())
	}()

	resp, err := http.Get("http://" + s.Addr() + MetricsPath)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body),
		`disperser_wallets_total{flow="disperse",status="succeeded"} 1`)
}

// TestServer_Config tests configuration validation.
func TestServer_Config(t *testing.T) {
	t.Parallel()

	_, err := New(nil)
	require.Error(t, err)

	_, err = New(&Config{Gatherer: prometheus.NewRegistry()})
	require.Error(t, err)

	_, err = New(&Config{ListenAddr: "127.0.0.1:0"})
	require.Error(t, err)
}
