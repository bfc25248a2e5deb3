package receiving

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PumpLamp/DisperseSol/keyring"
	"github.com/PumpLamp/DisperseSol/ledger"
	"github.com/PumpLamp/DisperseSol/ledger/ledgertest"
	"github.com/PumpLamp/DisperseSol/metrics"
	"github.com/PumpLamp/DisperseSol/submit"
	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// immediateClock fires every wait at once.
type immediateClock struct{}

func (immediateClock) Now() time.Time {
	return time.Now()
}

func (immediateClock) TickAfter(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

type harness struct {
	fake      *ledgertest.Ledger
	operating solana.PrivateKey
	wallets   []*keyring.Credential
	receiver  *Receiver
}

// newHarness wires a Receiver over a fake ledger with n funded wallets.
// Wallet i holds (i+1) * 1000 lamports.
func newHarness(t *testing.T, n int, m *metrics.Metrics) *harness {
	t.Helper()

	h := &harness{
		fake:      ledgertest.New(),
		operating: solana.NewWallet().PrivateKey,
	}
	for i := 0; i < n; i++ {
		cred := &keyring.Credential{
			PrivateKey: solana.NewWallet().PrivateKey,
			Line:       i + 1,
		}
		h.wallets = append(h.wallets, cred)
		h.fake.SetBalance(cred.PublicKey(), uint64(i+1)*1000)
	}

	kr, err := keyring.New(&keyring.Config{
		Operating: h.operating,
		Wallets:   h.wallets,
	})
	require.NoError(t, err)

	subCfg := submit.DefaultConfig(h.fake, metrics.FlowCollect)
	subCfg.Clock = immediateClock{}
	submitter, err := submit.New(subCfg)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Ledger = h.fake
	cfg.Oracle = ledger.NewOracle(h.fake)
	cfg.KeyRing = kr
	cfg.Submitter = submitter
	cfg.Metrics = m

	h.receiver, err = New(cfg)
	require.NoError(t, err)

	return h
}

// TestCollect_BatchSizes tests that N wallets produce ceil(N/8) batches
// sized 8, ..., 8, N mod 8 (or 8).
func TestCollect_BatchSizes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wallets int
		sizes   []int
	}{
		{wallets: 1, sizes: []int{1}},
		{wallets: 8, sizes: []int{8}},
		{wallets: 9, sizes: []int{8, 1}},
		{wallets: 20, sizes: []int{8, 8, 4}},
		{wallets: 24, sizes: []int{8, 8, 8}},
		{wallets: 0, sizes: nil},
	}

	for _, tc := range tests {
		h := newHarness(t, tc.wallets, nil)

		report := h.receiver.Collect(context.Background(), h.wallets)

		var sizes []int
		for _, b := range report.Batches {
			sizes = append(sizes, len(b.Wallets))
		}
		require.Equal(t, tc.sizes, sizes, "wallets=%d", tc.wallets)
		require.Len(t, h.fake.Submitted(), len(tc.sizes))
		require.Equal(t, tc.wallets, report.Succeeded())
	}
}

// TestCollect_BatchContents tests that each batch sweeps full balances in
// registry order into the operating account with the right signers.
func TestCollect_BatchContents(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 10, nil)
	report := h.receiver.Collect(context.Background(), h.wallets)
	require.Len(t, report.Batches, 2)

	operating := h.operating.PublicKey()
	var swept uint64
	for bi, b := range report.Batches {
		require.Equal(t, bi+1, b.Number)
		require.False(t, b.Failed)

		tx := h.fake.TxFor(b.Signature)
		require.NotNil(t, tx)
		require.Equal(t, operating, tx.Payer)
		require.Equal(t, operating, tx.Signers[0])
		require.Len(t, tx.Signers, len(b.Wallets)+1)

		for j, inst := range tx.Instructions {
			wallet := h.wallets[bi*DefaultBatchSize+j]
			require.Equal(t, ledgertest.KindTransfer, inst.Kind)
			require.Equal(t, wallet.PublicKey(), inst.From)
			require.Equal(t, operating, inst.To)
			require.EqualValues(t, (bi*DefaultBatchSize+j+1)*1000,
				inst.Lamports)
			require.Equal(t, wallet.PublicKey(), tx.Signers[j+1])
		}
		swept += b.Lamports
	}

	require.EqualValues(t, 55_000, swept)
	require.EqualValues(t, 55_000, report.Collected())
	require.Equal(t, h.wallets[8].PublicKey(), report.Batches[1].First())
}

// TestCollect_FailedBatchContinues tests that a failed batch does not stop
// later batches.
func TestCollect_FailedBatchContinues(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	h := newHarness(t, 17, m)
	first := h.wallets[8].PublicKey()
	h.fake.OnSubmit(func(tx *ledgertest.Tx, _ int) error {
		if tx.Instructions[0].From == first {
			return errors.New("blockhash expired")
		}
		return nil
	})

	report := h.receiver.Collect(context.Background(), h.wallets)
	require.Len(t, report.Batches, 3)
	require.False(t, report.Batches[0].Failed)
	require.True(t, report.Batches[1].Failed)
	require.False(t, report.Batches[2].Failed)

	failed := report.Batches[1]
	require.Equal(t, first, failed.First())
	require.Equal(t, submit.DefaultMaxRetry+1, failed.Attempts)
	require.ErrorIs(t, failed.Err, submit.ErrSubmissionFailed)

	require.Equal(t, 9, report.Succeeded())
	require.Equal(t, 8, report.Failed())
}

// TestCollect_SkipsUnreadable tests that a wallet whose balance cannot be
// read is left out while its batch still settles.
func TestCollect_SkipsUnreadable(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 9, nil)
	h.fake.FailBalance(h.wallets[2].PublicKey(), errors.New("timeout"))
	h.fake.FailBalance(h.wallets[8].PublicKey(), errors.New("timeout"))

	report := h.receiver.Collect(context.Background(), h.wallets)

	// The second batch only held the unreadable ninth wallet, so nothing
	// was submitted for it.
	require.Len(t, report.Batches, 1)
	require.Len(t, report.Batches[0].Wallets, 7)
	require.NotContains(t, report.Batches[0].Wallets,
		h.wallets[2].PublicKey())

	require.Len(t, report.Skipped, 2)
	require.Equal(t, 2, report.Skipped[0].Index)
	require.Equal(t, 8, report.Skipped[1].Index)
	require.Len(t, h.fake.Submitted(), 1)
}

// TestBatch tests capacity handling and reset.
func TestBatch(t *testing.T) {
	t.Parallel()

	b := NewBatch(2)
	w1 := &keyring.Credential{PrivateKey: solana.NewWallet().PrivateKey}
	w2 := &keyring.Credential{PrivateKey: solana.NewWallet().PrivateKey}

	require.NoError(t, b.Add(w1, 5))
	require.False(t, b.Full())
	require.NoError(t, b.Add(w2, 7))
	require.True(t, b.Full())
	require.Error(t, b.Add(w1, 1))
	require.EqualValues(t, 12, b.Total())

	operating := solana.NewWallet().PrivateKey
	signers := b.Signers(operating)
	require.Equal(t, []solana.PrivateKey{
		operating, w1.PrivateKey, w2.PrivateKey,
	}, signers)

	b.Reset()
	require.Zero(t, b.Len())
	require.Empty(t, b.Entries())
}

// TestConfig_Validate tests configuration validation.
func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	_, err := New(DefaultConfig())
	require.Error(t, err)

	h := newHarness(t, 1, nil)
	cfg := *h.receiver.cfg
	cfg.BatchSize = 0
	require.Error(t, cfg.Validate())
}
