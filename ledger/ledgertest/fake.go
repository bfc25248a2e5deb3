// Package ledgertest provides an in-memory ledger.Ledger for tests.
package ledgertest

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/PumpLamp/DisperseSol/ledger"
	"github.com/gagliardetto/solana-go"
)

// Kind names the operation a fake instruction stands for.
type Kind string

const (
	KindTransfer Kind = "transfer"
	KindEnsure   Kind = "ensure"
	KindClose    Kind = "close"
)

// programID is a placeholder program all fake instructions target.
var programID = solana.MustPublicKeyFromBase58(
	"11111111111111111111111111111111",
)

// Instruction is a recognizable instruction emitted by the fake.
type Instruction struct {
	Kind Kind

	// Transfer: From -> To. Ensure: From = payer, To = account,
	// Owner = owner. Close: From = account, To = destination,
	// Owner = authority.
	From     solana.PublicKey
	To       solana.PublicKey
	Owner    solana.PublicKey
	Lamports uint64
}

// ProgramID implements solana.Instruction.
func (i *Instruction) ProgramID() solana.PublicKey {
	return programID
}

// Accounts implements solana.Instruction.
func (i *Instruction) Accounts() []*solana.AccountMeta {
	return []*solana.AccountMeta{
		solana.NewAccountMeta(i.From, true, false),
		solana.NewAccountMeta(i.To, true, false),
	}
}

// Data implements solana.Instruction.
func (i *Instruction) Data() ([]byte, error) {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint64(data, i.Lamports)

	return append([]byte(i.Kind), data...), nil
}

// Tx is the record the fake keeps for every built transaction.
type Tx struct {
	Payer        solana.PublicKey
	Instructions []*Instruction

	// Signers is set by the most recent Submit call.
	Signers []solana.PublicKey

	// Attempts counts Submit calls for this transaction.
	Attempts int
}

// SubmitFunc decides the result of one submit attempt. A nil error lets the
// submission through.
type SubmitFunc func(tx *Tx, attempt int) error

// Ledger is a goroutine-safe fake ledger.
type Ledger struct {
	mu sync.Mutex

	balances    map[solana.PublicKey]uint64
	balanceErrs map[solana.PublicKey]error
	balanceHook func(addr solana.PublicKey)

	submitFn  SubmitFunc
	confirmFn func(sig solana.Signature) error

	txs     map[*solana.Transaction]*Tx
	order   []*Tx
	sigs    map[solana.Signature]*Tx
	nextSig uint64
}

// New creates an empty fake ledger.
func New() *Ledger {
	return &Ledger{
		balances:    make(map[solana.PublicKey]uint64),
		balanceErrs: make(map[solana.PublicKey]error),
		txs:         make(map[*solana.Transaction]*Tx),
		sigs:        make(map[solana.Signature]*Tx),
	}
}

// SetBalance sets the lamport balance reported for addr.
func (l *Ledger) SetBalance(addr solana.PublicKey, lamports uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.balances[addr] = lamports
}

// FailBalance makes balance queries for addr return err.
func (l *Ledger) FailBalance(addr solana.PublicKey, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.balanceErrs[addr] = err
}

// OnBalance registers a hook that runs on every balance query.
func (l *Ledger) OnBalance(fn func(addr solana.PublicKey)) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.balanceHook = fn
}

// OnSubmit installs fn to decide the result of each Submit call.
func (l *Ledger) OnSubmit(fn SubmitFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.submitFn = fn
}

// OnConfirm installs fn to decide the result of each Confirm call.
func (l *Ledger) OnConfirm(fn func(sig solana.Signature) error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.confirmFn = fn
}

// Transactions returns every built transaction in build order.
func (l *Ledger) Transactions() []*Tx {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]*Tx(nil), l.order...)
}

// Submitted returns the transactions that were submitted at least once.
func (l *Ledger) Submitted() []*Tx {
	l.mu.Lock()
	defer l.mu.Unlock()

	var submitted []*Tx
	for _, tx := range l.order {
		if tx.Attempts > 0 {
			submitted = append(submitted, tx)
		}
	}

	return submitted
}

// Balance implements ledger.Ledger.
func (l *Ledger) Balance(_ context.Context,
	addr solana.PublicKey) (uint64, error) {

	l.mu.Lock()
	hook := l.balanceHook
	err := l.balanceErrs[addr]
	balance := l.balances[addr]
	l.mu.Unlock()

	if hook != nil {
		hook(addr)
	}
	if err != nil {
		return 0, err
	}

	return balance, nil
}

// TransferInstruction implements ledger.Ledger.
func (l *Ledger) TransferInstruction(from, to solana.PublicKey,
	lamports uint64) solana.Instruction {

	return &Instruction{
		Kind:     KindTransfer,
		From:     from,
		To:       to,
		Lamports: lamports,
	}
}

// SettlementAccount derives a deterministic fake settlement address.
func (l *Ledger) SettlementAccount(
	owner solana.PublicKey) (solana.PublicKey, error) {

	var settlement solana.PublicKey
	for i := range owner {
		settlement[i] = owner[i] ^ 0xff
	}

	return settlement, nil
}

// EnsureAccountInstruction implements ledger.Ledger.
func (l *Ledger) EnsureAccountInstruction(payer, account,
	owner solana.PublicKey) solana.Instruction {

	return &Instruction{
		Kind:  KindEnsure,
		From:  payer,
		To:    account,
		Owner: owner,
	}
}

// CloseAccountInstruction implements ledger.Ledger.
func (l *Ledger) CloseAccountInstruction(account, destination,
	authority solana.PublicKey) solana.Instruction {

	return &Instruction{
		Kind:  KindClose,
		From:  account,
		To:    destination,
		Owner: authority,
	}
}

// BuildTransaction implements ledger.Ledger.
func (l *Ledger) BuildTransaction(_ context.Context, payer solana.PublicKey,
	instructions []solana.Instruction) (*solana.Transaction, error) {

	rec := &Tx{
		Payer: payer,
	}
	for _, inst := range instructions {
		fake, ok := inst.(*Instruction)
		if !ok {
			return nil, fmt.Errorf("unexpected instruction %T", inst)
		}
		rec.Instructions = append(rec.Instructions, fake)
	}

	tx := &solana.Transaction{}

	l.mu.Lock()
	l.txs[tx] = rec
	l.order = append(l.order, rec)
	l.mu.Unlock()

	return tx, nil
}

// Submit implements ledger.Ledger.
func (l *Ledger) Submit(_ context.Context, tx *solana.Transaction,
	signers []solana.PrivateKey) (solana.Signature, error) {

	l.mu.Lock()
	rec, ok := l.txs[tx]
	if !ok {
		l.mu.Unlock()
		return solana.Signature{}, fmt.Errorf("unknown transaction")
	}

	attempt := rec.Attempts
	rec.Attempts++
	rec.Signers = rec.Signers[:0]
	for _, signer := range signers {
		rec.Signers = append(rec.Signers, signer.PublicKey())
	}
	submitFn := l.submitFn
	l.mu.Unlock()

	if submitFn != nil {
		if err := submitFn(rec, attempt); err != nil {
			return solana.Signature{}, err
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextSig++
	var sig solana.Signature
	binary.LittleEndian.PutUint64(sig[:], l.nextSig)
	l.sigs[sig] = rec

	return sig, nil
}

// Confirm implements ledger.Ledger.
func (l *Ledger) Confirm(_ context.Context, sig solana.Signature,
	_ ledger.Commitment) error {

	l.mu.Lock()
	confirmFn := l.confirmFn
	_, ok := l.sigs[sig]
	l.mu.Unlock()

	if !ok {
		return fmt.Errorf("unknown signature %v", sig)
	}
	if confirmFn != nil {
		return confirmFn(sig)
	}

	return nil
}

// TxFor returns the record behind a signature returned by Submit.
func (l *Ledger) TxFor(sig solana.Signature) *Tx {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.sigs[sig]
}

var _ ledger.Ledger = (*Ledger)(nil)
