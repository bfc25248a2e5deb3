package sending

import (
	"context"
	"sync"

	"github.com/PumpLamp/DisperseSol/ledger"
	"github.com/gagliardetto/solana-go"
)

// reservations is the funds book of one dispersal run. The operating
// balance is read once, on the first guard of the run, and every passing
// guard debits the snapshot. A dispersal that lands is never credited back,
// as its transfer is already part of the live balance the snapshot
// predates. Only skipped or failed dispersals return their funds.
type reservations struct {
	// enabled turns off bookkeeping when false, leaving each guard to
	// check the live balance on its own.
	enabled bool

	balance  uint64
	loaded   bool
	reserved uint64
	mu       sync.Mutex
}

// newReservations creates an empty funds book.
func newReservations(enabled bool) *reservations {
	return &reservations{
		enabled: enabled,
	}
}

// reserve checks that the operating account can cover required on top of
// everything already reserved in this run and, if so, reserves it. The
// returned release func hands the funds back and must be called if the
// dispersal does not land. It is safe to call more than once.
func (r *reservations) reserve(ctx context.Context, oracle *ledger.Oracle,
	operating, wallet solana.PublicKey,
	required uint64) (func(), error) {

	if !r.enabled {
		balance, err := oracle.Lamports(ctx, operating)
		if err != nil {
			return nil, err
		}
		if balance < required {
			return nil, &InsufficientFundsError{
				Wallet:   wallet,
				Balance:  balance,
				Required: required,
			}
		}

		return func() {}, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// A failed read is not cached, the next guard tries again.
	if !r.loaded {
		balance, err := oracle.Lamports(ctx, operating)
		if err != nil {
			return nil, err
		}

		log.Debugf("Operating balance at start of run: %v SOL",
			ledger.FromLamports(balance))

		r.balance = balance
		r.loaded = true
	}

	if r.balance < r.reserved || r.balance-r.reserved < required {
		return nil, &InsufficientFundsError{
			Wallet:   wallet,
			Balance:  r.balance,
			Reserved: r.reserved,
			Required: required,
		}
	}

	r.reserved += required

	var once sync.Once
	release := func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()

			r.reserved -= required
		})
	}

	return release, nil
}

// outstanding returns the total reserved so far in the run.
func (r *reservations) outstanding() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.reserved
}
