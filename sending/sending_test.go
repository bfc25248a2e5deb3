package sending

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/PumpLamp/DisperseSol/amount"
	"github.com/PumpLamp/DisperseSol/keyring"
	"github.com/PumpLamp/DisperseSol/ledger"
	"github.com/PumpLamp/DisperseSol/ledger/ledgertest"
	"github.com/PumpLamp/DisperseSol/metrics"
	"github.com/PumpLamp/DisperseSol/submit"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
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

// listStrategy resolves amounts by position.
type listStrategy []decimal.Decimal

func (l listStrategy) Resolve(i int, _ solana.PublicKey) decimal.Decimal {
	return l[i]
}

func (l listStrategy) Name() string {
	return "list"
}

var _ amount.Strategy = listStrategy(nil)

type harness struct {
	fake      *ledgertest.Ledger
	operating solana.PrivateKey
	wallets   []*keyring.Credential
	sender    *Sender
}

// newHarness wires a Sender over a fake ledger with n managed wallets.
func newHarness(t *testing.T, n int, reserve bool) *harness {
	t.Helper()

	h := &harness{
		fake:      ledgertest.New(),
		operating: solana.NewWallet().PrivateKey,
	}
	for i := 0; i < n; i++ {
		h.wallets = append(h.wallets, &keyring.Credential{
			PrivateKey: solana.NewWallet().PrivateKey,
			Line:       i + 1,
		})
	}

	kr, err := keyring.New(&keyring.Config{
		Operating: h.operating,
		Wallets:   h.wallets,
	})
	require.NoError(t, err)

	subCfg := submit.DefaultConfig(h.fake, metrics.FlowDisperse)
	subCfg.Clock = immediateClock{}
	submitter, err := submit.New(subCfg)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Ledger = h.fake
	cfg.Oracle = ledger.NewOracle(h.fake)
	cfg.KeyRing = kr
	cfg.Submitter = submitter
	cfg.ReserveBalances = reserve

	h.sender, err = New(cfg)
	require.NoError(t, err)

	return h
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// TestAssemble_Shape tests instruction order, accounts and the reserve
// deduction.
func TestAssemble_Shape(t *testing.T) {
	t.Parallel()

	fake := ledgertest.New()
	operating := solana.NewWallet().PublicKey()
	dest := solana.NewWallet().PublicKey()
	settlement, err := fake.SettlementAccount(dest)
	require.NoError(t, err)

	instrs, err := Assemble(fake, operating, dest, 10_000_000, 2_000_000)
	require.NoError(t, err)
	require.Len(t, instrs, 3)

	ensure := instrs[0].(*ledgertest.Instruction)
	require.Equal(t, ledgertest.KindEnsure, ensure.Kind)
	require.Equal(t, operating, ensure.From)
	require.Equal(t, settlement, ensure.To)
	require.Equal(t, dest, ensure.Owner)

	transfer := instrs[1].(*ledgertest.Instruction)
	require.Equal(t, ledgertest.KindTransfer, transfer.Kind)
	require.Equal(t, operating, transfer.From)
	require.Equal(t, settlement, transfer.To)
	require.EqualValues(t, 8_000_000, transfer.Lamports)

	closeAcct := instrs[2].(*ledgertest.Instruction)
	require.Equal(t, ledgertest.KindClose, closeAcct.Kind)
	require.Equal(t, settlement, closeAcct.From)
	require.Equal(t, dest, closeAcct.To)
	require.Equal(t, dest, closeAcct.Owner)
}

// TestAssemble_NothingTransferable tests that the transfer is left out when
// the amount does not exceed the reserve.
func TestAssemble_NothingTransferable(t *testing.T) {
	t.Parallel()

	fake := ledgertest.New()
	instrs, err := Assemble(fake, solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(), 2_000_000, 2_000_000)
	require.NoError(t, err)
	require.Len(t, instrs, 2)
	require.Equal(t, ledgertest.KindEnsure,
		instrs[0].(*ledgertest.Instruction).Kind)
	require.Equal(t, ledgertest.KindClose,
		instrs[1].(*ledgertest.Instruction).Kind)
}

// TestDisperse_AllSucceed tests a full run and the signer set.
func TestDisperse_AllSucceed(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 5, true)
	h.fake.SetBalance(h.operating.PublicKey(), 10*ledger.LamportsPerSol)

	uniform, err := amount.NewUniform(dec("0.05"), amount.DefaultThreshold)
	require.NoError(t, err)

	report := h.sender.Disperse(context.Background(), h.wallets, uniform)
	require.Equal(t, "uniform", report.Strategy)
	require.Len(t, report.Results, 5)
	require.Equal(t, 5, report.Count(StatusSucceeded))
	require.True(t, report.Total().Equal(dec("0.25")))

	for i, res := range report.Results {
		require.Equal(t, i, res.Index)
		require.Equal(t, h.wallets[i].PublicKey(), res.Wallet)
		require.Equal(t, 1, res.Attempts)

		tx := h.fake.TxFor(res.Signature)
		require.NotNil(t, tx)
		require.Equal(t, h.operating.PublicKey(), tx.Payer)
		require.ElementsMatch(t, []solana.PublicKey{
			h.operating.PublicKey(), h.wallets[i].PublicKey(),
		}, tx.Signers)
		require.Len(t, tx.Instructions, 3)
		require.EqualValues(t, 48_000_000, tx.Instructions[1].Lamports)
	}
}

// TestDisperse_SkipIsolated tests that a wallet the operating account
// cannot cover is skipped while the others complete.
func TestDisperse_SkipIsolated(t *testing.T) {
	t.Parallel()

	for _, reserve := range []bool{true, false} {
		h := newHarness(t, 3, reserve)
		h.fake.SetBalance(h.operating.PublicKey(), ledger.LamportsPerSol)

		strategy := listStrategy{dec("0.1"), dec("5"), dec("0.1")}
		report := h.sender.Disperse(
			context.Background(), h.wallets, strategy,
		)

		require.Equal(t, StatusSucceeded, report.Results[0].Status)
		require.Equal(t, StatusSkipped, report.Results[1].Status)
		require.Equal(t, StatusSucceeded, report.Results[2].Status)

		var fundsErr *InsufficientFundsError
		require.True(t, errors.As(report.Results[1].Err, &fundsErr))
		require.ErrorIs(t, report.Results[1].Err, ErrInsufficientFunds)
		require.Equal(t, h.wallets[1].PublicKey(), fundsErr.Wallet)
		require.EqualValues(t, 5_010_000_000, fundsErr.Required)

		require.Len(t, h.fake.Submitted(), 2)
	}
}

// TestDisperse_FailureIsolated tests that a submission failing on every
// attempt only fails its own wallet.
func TestDisperse_FailureIsolated(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 3, true)
	h.fake.SetBalance(h.operating.PublicKey(), 10*ledger.LamportsPerSol)

	bad := h.wallets[1].PublicKey()
	h.fake.OnSubmit(func(tx *ledgertest.Tx, _ int) error {
		for _, inst := range tx.Instructions {
			if inst.Kind == ledgertest.KindClose && inst.To == bad {
				return errors.New("simulation failed")
			}
		}
		return nil
	})

	uniform, err := amount.NewUniform(dec("0.01"), amount.DefaultThreshold)
	require.NoError(t, err)

	report := h.sender.Disperse(context.Background(), h.wallets, uniform)
	require.Equal(t, 2, report.Count(StatusSucceeded))
	require.Equal(t, 1, report.Count(StatusFailed))

	failed := report.Results[1]
	require.Equal(t, StatusFailed, failed.Status)
	require.Equal(t, submit.DefaultMaxRetry+1, failed.Attempts)
	require.ErrorIs(t, failed.Err, submit.ErrSubmissionFailed)
}

// TestDisperse_BalanceQueryFails tests that a failed guard query fails the
// wallet without submitting.
func TestDisperse_BalanceQueryFails(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 2, true)
	h.fake.FailBalance(h.operating.PublicKey(), errors.New("timeout"))

	uniform, err := amount.NewUniform(dec("0.01"), amount.DefaultThreshold)
	require.NoError(t, err)

	report := h.sender.Disperse(context.Background(), h.wallets, uniform)
	require.Equal(t, 2, report.Count(StatusFailed))
	require.Empty(t, h.fake.Submitted())
}

// TestDisperse_Bounded tests that a parallelism limit still handles every
// wallet.
func TestDisperse_Bounded(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 7, true)
	h.sender.cfg.MaxParallel = 2
	h.fake.SetBalance(h.operating.PublicKey(), 10*ledger.LamportsPerSol)

	uniform, err := amount.NewUniform(dec("0.01"), amount.DefaultThreshold)
	require.NoError(t, err)

	report := h.sender.Disperse(context.Background(), h.wallets, uniform)
	require.Equal(t, 7, report.Count(StatusSucceeded))
}

// TestDisperse_JointlyFunded tests that a landed transfer is not counted
// twice while it awaits confirmation, so concurrent wallets the operating
// account can fund together all go through, and that one more wallet than
// the balance covers is still skipped.
func TestDisperse_JointlyFunded(t *testing.T) {
	t.Parallel()

	h := newHarness(t, 3, true)
	operating := h.operating.PublicKey()
	h.fake.SetBalance(operating, ledger.LamportsPerSol)

	first, second := h.wallets[0].PublicKey(), h.wallets[1].PublicKey()
	secondSubmitted := make(chan struct{})

	var (
		mu       sync.Mutex
		balance  = ledger.LamportsPerSol
		firstSig solana.Signature
	)
	h.fake.OnSubmit(func(tx *ledgertest.Tx, attempt int) error {
		mu.Lock()
		defer mu.Unlock()

		// Debit the live balance as soon as the transfer lands.
		for _, inst := range tx.Instructions {
			if inst.Kind == ledgertest.KindTransfer {
				balance -= inst.Lamports
				h.fake.SetBalance(operating, balance)
			}
			if inst.Kind == ledgertest.KindClose &&
				inst.To == second && attempt == 0 {

				close(secondSubmitted)
			}
		}
		return nil
	})
	h.fake.OnConfirm(func(sig solana.Signature) error {
		tx := h.fake.TxFor(sig)
		if tx.Instructions[len(tx.Instructions)-1].To != first {
			return nil
		}

		mu.Lock()
		firstSig = sig
		mu.Unlock()

		// Hold the first wallet unconfirmed until the second one has
		// passed its guard and been submitted.
		select {
		case <-secondSubmitted:
		case <-time.After(5 * time.Second):
		}
		return nil
	})

	strategy := listStrategy{dec("0.4"), dec("0.4"), dec("0.4")}

	// The third wallet only starts once the first two are done.
	h.sender.cfg.MaxParallel = 2
	report := h.sender.Disperse(context.Background(), h.wallets, strategy)

	require.Equal(t, StatusSucceeded, report.Results[0].Status)
	require.Equal(t, StatusSucceeded, report.Results[1].Status)
	require.Equal(t, StatusSkipped, report.Results[2].Status)
	require.ErrorIs(t, report.Results[2].Err, ErrInsufficientFunds)

	mu.Lock()
	require.Equal(t, report.Results[0].Signature, firstSig)
	mu.Unlock()
}

// TestReservations_Snapshot tests that the operating balance is read once
// per run and that a failed read is retried by the next guard.
func TestReservations_Snapshot(t *testing.T) {
	t.Parallel()

	fake := ledgertest.New()
	operating := solana.NewWallet().PublicKey()
	wallet := solana.NewWallet().PublicKey()
	oracle := ledger.NewOracle(fake)
	ctx := context.Background()

	var reads int
	fake.OnBalance(func(solana.PublicKey) {
		reads++
	})

	r := newReservations(true)

	errRPC := errors.New("timeout")
	fake.FailBalance(operating, errRPC)
	_, err := r.reserve(ctx, oracle, operating, wallet, 10)
	require.ErrorIs(t, err, errRPC)

	fake.FailBalance(operating, nil)
	fake.SetBalance(operating, 100)
	_, err = r.reserve(ctx, oracle, operating, wallet, 60)
	require.NoError(t, err)

	// A later drop in the live balance is the landed transfer itself.
	fake.SetBalance(operating, 40)
	_, err = r.reserve(ctx, oracle, operating, wallet, 40)
	require.NoError(t, err)

	require.Equal(t, 2, reads)
	require.EqualValues(t, 100, r.outstanding())
}

// TestReservations tests that concurrent guards cannot share funds and that
// releasing makes funds available again.
func TestReservations(t *testing.T) {
	t.Parallel()

	fake := ledgertest.New()
	operating := solana.NewWallet().PublicKey()
	wallet := solana.NewWallet().PublicKey()
	fake.SetBalance(operating, 100)
	oracle := ledger.NewOracle(fake)
	ctx := context.Background()

	r := newReservations(true)

	release1, err := r.reserve(ctx, oracle, operating, wallet, 40)
	require.NoError(t, err)
	release2, err := r.reserve(ctx, oracle, operating, wallet, 40)
	require.NoError(t, err)

	_, err = r.reserve(ctx, oracle, operating, wallet, 40)
	var fundsErr *InsufficientFundsError
	require.True(t, errors.As(err, &fundsErr))
	require.EqualValues(t, 80, fundsErr.Reserved)

	release1()
	release1()
	require.EqualValues(t, 40, r.outstanding())

	release3, err := r.reserve(ctx, oracle, operating, wallet, 40)
	require.NoError(t, err)

	release2()
	release3()
	require.Zero(t, r.outstanding())

	unguarded := newReservations(false)
	for i := 0; i < 3; i++ {
		_, err := unguarded.reserve(ctx, oracle, operating, wallet, 40)
		require.NoError(t, err)
	}
	_, err = unguarded.reserve(ctx, oracle, operating, wallet, 101)
	require.ErrorIs(t, err, ErrInsufficientFunds)
}

// TestConfig_Validate tests configuration validation.
func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	_, err := New(DefaultConfig())
	require.Error(t, err)

	h := newHarness(t, 1, true)
	cfg := *h.sender.cfg
	cfg.MaxParallel = -1
	require.Error(t, cfg.Validate())

	cfg = *h.sender.cfg
	cfg.SafetyMargin = dec("-1")
	require.Error(t, cfg.Validate())
}
