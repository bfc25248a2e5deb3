package solrpc

import (
	"context"
	"fmt"

	"github.com/PumpLamp/DisperseSol/ledger"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
)

// createIdempotent is the associated token account program instruction
// that creates an account unless it already exists.
const createIdempotent = 1

// Ledger implements ledger.Ledger against a Solana cluster.
type Ledger struct {
	client    *Client
	blockhash *blockhashCache
	confirm   *confirmationWaiter
}

// NewLedger creates a ledger backed by client.
func NewLedger(client *Client) *Ledger {
	return &Ledger{
		client: client,
		blockhash: newBlockhashCache(
			client.cfg.BlockhashTTL, client.cfg.Clock,
		),
		confirm: newConfirmationWaiter(client),
	}
}

// Balance implements ledger.Ledger.
func (l *Ledger) Balance(ctx context.Context,
	addr solana.PublicKey) (uint64, error) {

	return l.client.GetBalance(ctx, addr, rpc.CommitmentConfirmed)
}

// TransferInstruction implements ledger.Ledger with a system program
// transfer.
func (l *Ledger) TransferInstruction(from, to solana.PublicKey,
	lamports uint64) solana.Instruction {

	return system.NewTransferInstruction(lamports, from, to).Build()
}

// SettlementAccount implements ledger.Ledger. Dispersals are routed through
// the owner's wrapped SOL associated token account.
func (l *Ledger) SettlementAccount(
	owner solana.PublicKey) (solana.PublicKey, error) {

	addr, _, err := solana.FindAssociatedTokenAddress(owner, wrappedSolMint)
	if err != nil {
		return solana.PublicKey{}, err
	}

	return addr, nil
}

// EnsureAccountInstruction implements ledger.Ledger.
func (l *Ledger) EnsureAccountInstruction(payer, account,
	owner solana.PublicKey) solana.Instruction {

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(payer, true, true),
		solana.NewAccountMeta(account, true, false),
		solana.NewAccountMeta(owner, false, false),
		solana.NewAccountMeta(wrappedSolMint, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
	}

	return solana.NewInstruction(
		solana.SPLAssociatedTokenAccountProgramID, accounts,
		[]byte{createIdempotent},
	)
}

// CloseAccountInstruction implements ledger.Ledger.
func (l *Ledger) CloseAccountInstruction(account, destination,
	authority solana.PublicKey) solana.Instruction {

	return token.NewCloseAccountInstruction(
		account, destination, authority, nil,
	).Build()
}

// BuildTransaction implements ledger.Ledger.
func (l *Ledger) BuildTransaction(ctx context.Context, payer solana.PublicKey,
	instructions []solana.Instruction) (*solana.Transaction, error) {

	hash, err := l.recentBlockhash(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := solana.NewTransaction(
		instructions, hash, solana.TransactionPayer(payer),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction: %w", err)
	}

	return tx, nil
}

// recentBlockhash returns a cached or freshly fetched blockhash.
func (l *Ledger) recentBlockhash(ctx context.Context) (solana.Hash, error) {
	if hash, ok := l.blockhash.get(); ok {
		return hash, nil
	}

	hash, err := l.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("failed to get latest "+
			"blockhash: %w", err)
	}

	l.blockhash.set(hash)

	return hash, nil
}

// Submit implements ledger.Ledger. The transaction is signed by exactly
// the given keys; any existing signatures are replaced.
func (l *Ledger) Submit(ctx context.Context, tx *solana.Transaction,
	signers []solana.PrivateKey) (solana.Signature, error) {

	keys := make(map[solana.PublicKey]solana.PrivateKey, len(signers))
	for _, signer := range signers {
		keys[signer.PublicKey()] = signer
	}

	tx.Signatures = nil
	_, err := tx.Sign(func(pub solana.PublicKey) *solana.PrivateKey {
		key, ok := keys[pub]
		if !ok {
			return nil
		}
		return &key
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%w: %v", ErrMissingSigner,
			err)
	}

	sig, err := l.client.SendTransaction(ctx, tx)
	if err != nil {
		// A rejected send often means the blockhash went stale.
		l.blockhash.invalidate()
		return solana.Signature{}, err
	}

	log.Debugf("Sent transaction %v", sig)

	return sig, nil
}

// Confirm implements ledger.Ledger.
func (l *Ledger) Confirm(ctx context.Context, sig solana.Signature,
	level ledger.Commitment) error {

	return l.confirm.wait(ctx, sig, level)
}

var _ ledger.Ledger = (*Ledger)(nil)
