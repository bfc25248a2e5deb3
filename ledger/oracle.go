package ledger

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// Oracle reads live balances through a Ledger. It performs no retries;
// query failures are returned to the caller as-is.
type Oracle struct {
	ledger Ledger
}

// NewOracle creates a balance oracle backed by the given ledger.
func NewOracle(l Ledger) *Oracle {
	return &Oracle{
		ledger: l,
	}
}

// Lamports returns the balance of addr in base units.
func (o *Oracle) Lamports(ctx context.Context,
	addr solana.PublicKey) (uint64, error) {

	lamports, err := o.ledger.Balance(ctx, addr)
	if err != nil {
		return 0, fmt.Errorf("unable to query balance of %v: %w",
			addr, err)
	}

	return lamports, nil
}

// Balance returns the balance of addr in display units.
func (o *Oracle) Balance(ctx context.Context,
	addr solana.PublicKey) (decimal.Decimal, error) {

	lamports, err := o.Lamports(ctx, addr)
	if err != nil {
		return decimal.Zero, err
	}

	log.Tracef("Balance of %v: %d lamports", addr, lamports)

	return FromLamports(lamports), nil
}
