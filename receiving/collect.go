package receiving

import (
	"context"
	"fmt"

	"github.com/PumpLamp/DisperseSol/keyring"
	"github.com/PumpLamp/DisperseSol/ledger"
	"github.com/PumpLamp/DisperseSol/metrics"
	"github.com/gagliardetto/solana-go"
)

// Collect sweeps the entire balance of every wallet into the operating
// account. Wallets are grouped by position into batches of BatchSize, each
// settled as one transaction and strictly one after the other. A failed
// batch is reported and the run moves on.
func (r *Receiver) Collect(ctx context.Context,
	wallets []*keyring.Credential) *Report {

	report := &Report{}
	operatingKey := r.cfg.KeyRing.Operating()
	operating := operatingKey.PublicKey()
	batch := NewBatch(r.cfg.BatchSize)

	log.Infof("Collecting from %d wallets into %v", len(wallets),
		operating)

	for i, wallet := range wallets {
		addr := wallet.PublicKey()

		lamports, err := r.cfg.Oracle.Lamports(ctx, addr)
		if err != nil {
			log.Errorf("Skipping collection from %v: %v", addr, err)

			report.Skipped = append(report.Skipped, &SkippedWallet{
				Index:  i,
				Wallet: addr,
				Err:    err,
			})
			r.cfg.Metrics.ObserveWallet(
				metrics.FlowCollect, metrics.StatusSkipped,
			)
		} else {
			log.Debugf("Wallet %d (%v) holds %v SOL", i+1, addr,
				ledger.FromLamports(lamports))

			if err := batch.Add(wallet, lamports); err != nil {
				// Flush points are aligned with the batch size, so
				// this only trips on a logic error.
				log.Criticalf("Unable to extend batch: %v", err)
			}
		}

		if (i+1)%r.cfg.BatchSize != 0 && i != len(wallets)-1 {
			continue
		}

		if batch.Len() > 0 {
			res := r.flush(
				ctx, len(report.Batches)+1, batch, operatingKey,
			)
			report.Batches = append(report.Batches, res)
		}
		batch.Reset()
	}

	log.Infof("Collection finished: %d batches, %d wallets swept, "+
		"%d failed, %d skipped, %v SOL collected", len(report.Batches),
		report.Succeeded(), report.Failed(), len(report.Skipped),
		ledger.FromLamports(report.Collected()))

	return report
}

// flush submits batch as one transaction paid by the operating account.
func (r *Receiver) flush(ctx context.Context, number int, batch *Batch,
	operatingKey solana.PrivateKey) *BatchResult {

	operating := operatingKey.PublicKey()

	res := &BatchResult{
		Number:   number,
		Lamports: batch.Total(),
	}
	for _, e := range batch.Entries() {
		res.Wallets = append(res.Wallets, e.Wallet.PublicKey())
	}

	defer func() {
		status := metrics.StatusSucceeded
		if res.Failed {
			status = metrics.StatusFailed
		}
		for range res.Wallets {
			r.cfg.Metrics.ObserveWallet(metrics.FlowCollect, status)
		}
	}()

	tx, err := r.cfg.Ledger.BuildTransaction(
		ctx, operating, batch.Instructions(r.cfg.Ledger, operating),
	)
	if err != nil {
		res.Failed = true
		res.Err = fmt.Errorf("unable to build transaction: %w", err)

		log.Errorf("Batch %d starting at %v failed: %v", number,
			res.First(), res.Err)

		return res
	}

	outcome := r.cfg.Submitter.Submit(ctx, tx, batch.Signers(operatingKey))
	res.Attempts = outcome.Attempts
	if outcome.Failed {
		res.Failed = true
		res.Err = outcome.Err

		log.Errorf("Batch %d starting at %v failed: %v", number,
			res.First(), res.Err)

		return res
	}

	res.Signature = outcome.Signature

	log.Infof("Batch %d: swept %d wallets, %v SOL (%v)", number,
		len(res.Wallets), ledger.FromLamports(res.Lamports),
		res.Signature)

	return res
}
