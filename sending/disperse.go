package sending

import (
	"context"
	"errors"
	"fmt"

	"github.com/PumpLamp/DisperseSol/amount"
	"github.com/PumpLamp/DisperseSol/keyring"
	"github.com/PumpLamp/DisperseSol/ledger"
	"github.com/PumpLamp/DisperseSol/metrics"
	"github.com/davecgh/go-spew/spew"
	"github.com/gagliardetto/solana-go"
	"golang.org/x/sync/errgroup"
)

// Disperse sends every wallet the amount chosen by strategy. Wallets are
// handled concurrently and independently; a skipped or failed wallet never
// affects another. Disperse returns once every wallet has finished.
func (s *Sender) Disperse(ctx context.Context, wallets []*keyring.Credential,
	strategy amount.Strategy) *Report {

	report := &Report{
		Strategy: strategy.Name(),
		Results:  make([]*WalletResult, len(wallets)),
	}

	log.Infof("Dispersing to %d wallets using %s amounts", len(wallets),
		strategy.Name())

	book := newReservations(s.cfg.ReserveBalances)

	var g errgroup.Group
	if s.cfg.MaxParallel > 0 {
		g.SetLimit(s.cfg.MaxParallel)
	}

	for i, wallet := range wallets {
		i, wallet := i, wallet

		g.Go(func() error {
			res := s.disperseOne(ctx, book, i, wallet, strategy)
			report.Results[i] = res

			s.cfg.Metrics.ObserveWallet(
				metrics.FlowDisperse, string(res.Status),
			)

			return nil
		})
	}

	// Tasks never return errors.
	_ = g.Wait()

	log.Infof("Dispersal finished: %d succeeded, %d skipped, %d failed",
		report.Count(StatusSucceeded), report.Count(StatusSkipped),
		report.Count(StatusFailed))

	return report
}

// disperseOne runs the full dispersal for one wallet.
func (s *Sender) disperseOne(ctx context.Context, book *reservations,
	index int, wallet *keyring.Credential,
	strategy amount.Strategy) *WalletResult {

	dest := wallet.PublicKey()
	amt := strategy.Resolve(index, dest)

	res := &WalletResult{
		Index:  index,
		Wallet: dest,
		Amount: amt,
	}

	fail := func(status Status, err error) *WalletResult {
		res.Status = status
		res.Err = err

		if status == StatusSkipped {
			log.Warnf("Skipping dispersal of %v SOL to %v: %v", amt,
				dest, err)
		} else {
			log.Errorf("Dispersal of %v SOL to %v failed: %v", amt,
				dest, err)
		}

		return res
	}

	operating := s.cfg.KeyRing.OperatingAddress()
	lamports := ledger.ToLamports(amt)

	release, err := book.reserve(
		ctx, s.cfg.Oracle, operating, dest, lamports+s.margin,
	)
	switch {
	case errors.Is(err, ErrInsufficientFunds):
		return fail(StatusSkipped, err)

	case err != nil:
		return fail(StatusFailed, err)
	}
	defer func() {
		if res.Status != StatusSucceeded {
			release()
		}
	}()

	instructions, err := Assemble(
		s.cfg.Ledger, operating, dest, lamports, s.reserve,
	)
	if err != nil {
		return fail(StatusFailed, err)
	}

	log.Tracef("Instructions for %v: %v", dest, newLogClosure(
		func() string {
			return spew.Sdump(instructions)
		},
	))

	signers, err := s.signers(operating, dest)
	if err != nil {
		return fail(StatusFailed, err)
	}

	tx, err := s.cfg.Ledger.BuildTransaction(ctx, operating, instructions)
	if err != nil {
		return fail(StatusFailed, fmt.Errorf("unable to build "+
			"transaction: %w", err))
	}

	outcome := s.cfg.Submitter.Submit(ctx, tx, signers)
	res.Attempts = outcome.Attempts
	if outcome.Failed {
		return fail(StatusFailed, outcome.Err)
	}

	res.Status = StatusSucceeded
	res.Signature = outcome.Signature

	log.Infof("Sent %v SOL to %v (%v)", amt, dest, outcome.Signature)

	return res
}

// signers returns the private keys for the given accounts.
func (s *Sender) signers(
	accounts ...solana.PublicKey) ([]solana.PrivateKey, error) {

	keys := make([]solana.PrivateKey, 0, len(accounts))
	for _, account := range accounts {
		key := s.cfg.KeyRing.PrivateKey(account)
		if key == nil {
			return nil, fmt.Errorf("%w: %v", ErrKeyNotFound, account)
		}
		keys = append(keys, *key)
	}

	return keys, nil
}
