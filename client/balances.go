package client

import (
	"context"

	"github.com/PumpLamp/DisperseSol/keyring"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// balanceQueryLimit bounds concurrent balance queries.
const balanceQueryLimit = 4

// BalanceEntry is the balance of one account.
type BalanceEntry struct {
	// Index is the wallet's 0-based position, -1 for the operating
	// account.
	Index   int
	Address solana.PublicKey
	Balance decimal.Decimal

	// Err is set if the balance could not be read.
	Err error
}

// BalanceSheet lists the operating balance followed by every wallet.
type BalanceSheet struct {
	Operating *BalanceEntry
	Wallets   []*BalanceEntry
}

// WalletTotal returns the summed balance of all readable wallets.
func (b *BalanceSheet) WalletTotal() decimal.Decimal {
	total := decimal.Zero
	for _, w := range b.Wallets {
		if w.Err == nil {
			total = total.Add(w.Balance)
		}
	}

	return total
}

// Balances reads the operating balance and the balance of every wallet
// in reg. Unreadable balances are reported per entry.
func (c *Client) Balances(ctx context.Context,
	reg *keyring.Registry) *BalanceSheet {

	creds := reg.Credentials()
	sheet := &BalanceSheet{
		Operating: c.balanceEntry(ctx, -1, c.OperatingAddress()),
		Wallets:   make([]*BalanceEntry, len(creds)),
	}

	var g errgroup.Group
	g.SetLimit(balanceQueryLimit)
	for i, cred := range creds {
		i, cred := i, cred
		g.Go(func() error {
			sheet.Wallets[i] = c.balanceEntry(ctx, i, cred.PublicKey())
			return nil
		})
	}
	_ = g.Wait()

	return sheet
}

func (c *Client) balanceEntry(ctx context.Context, index int,
	addr solana.PublicKey) *BalanceEntry {

	entry := &BalanceEntry{
		Index:   index,
		Address: addr,
	}

	entry.Balance, entry.Err = c.oracle.Balance(ctx, addr)
	if entry.Err != nil {
		log.Warnf("Unable to read balance of %v: %v", addr, entry.Err)
	}

	return entry
}
