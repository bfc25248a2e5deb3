package solrpc

import (
	"context"
	"fmt"

	"github.com/PumpLamp/DisperseSol/ledger"
	"github.com/gagliardetto/solana-go"
	"github.com/lightningnetwork/lnd/ticker"
)

// confirmationWaiter polls signature statuses until a transaction reaches
// a commitment level.
type confirmationWaiter struct {
	client *Client

	// newTicker creates the poll ticker; replaced in tests.
	newTicker func() ticker.Ticker
}

// newConfirmationWaiter creates a waiter polling at the client's interval.
func newConfirmationWaiter(client *Client) *confirmationWaiter {
	return &confirmationWaiter{
		client: client,
		newTicker: func() ticker.Ticker {
			return ticker.New(client.cfg.PollInterval)
		},
	}
}

// wait blocks until sig reaches level, the transaction is reported failed,
// the confirmation timeout passes or ctx ends.
func (w *confirmationWaiter) wait(ctx context.Context, sig solana.Signature,
	level ledger.Commitment) error {

	ctx, cancel := context.WithTimeout(ctx, w.client.cfg.ConfirmTimeout)
	defer cancel()

	t := w.newTicker()
	t.Resume()
	defer t.Stop()

	for {
		done, err := w.check(ctx, sig, level)
		if done {
			return err
		}

		select {
		case <-t.Ticks():

		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return fmt.Errorf("%w: %v not %s after %v",
					ErrConfirmationTimeout, sig, level,
					w.client.cfg.ConfirmTimeout)
			}
			return ctx.Err()
		}
	}
}

// check polls the status once. Query errors are logged and polling goes
// on.
func (w *confirmationWaiter) check(ctx context.Context, sig solana.Signature,
	level ledger.Commitment) (bool, error) {

	status, err := w.client.GetSignatureStatus(ctx, sig)
	switch {
	case err != nil && ctx.Err() != nil:
		return false, nil

	case err != nil:
		log.Debugf("Status query for %v failed: %v", sig, err)
		return false, nil

	case status == nil:
		log.Tracef("Transaction %v not seen yet", sig)
		return false, nil

	case status.Err != nil:
		return true, &TransactionError{
			Signature: sig,
			Detail:    status.Err,
		}

	case reached(status.ConfirmationStatus, level):
		log.Debugf("Transaction %v reached %s at slot %d", sig,
			status.ConfirmationStatus, status.Slot)
		return true, nil
	}

	return false, nil
}
