package sending

import (
	"fmt"

	"github.com/PumpLamp/DisperseSol/ledger"
	"github.com/gagliardetto/solana-go"
)

// Assemble builds the instructions for one dispersal of amount lamports to
// destination:
//
//  1. create the destination's settlement account, paid by operating,
//  2. move amount-reserve into it, if anything is left after the reserve,
//  3. close it into the destination under the destination's authority.
//
// The transaction must be signed by both operating and destination.
func Assemble(l ledger.Ledger, operating, destination solana.PublicKey,
	amount, reserve uint64) ([]solana.Instruction, error) {

	settlement, err := l.SettlementAccount(destination)
	if err != nil {
		return nil, fmt.Errorf("unable to derive settlement account "+
			"for %v: %w", destination, err)
	}

	instructions := []solana.Instruction{
		l.EnsureAccountInstruction(operating, settlement, destination),
	}

	if amount > reserve {
		instructions = append(instructions, l.TransferInstruction(
			operating, settlement, amount-reserve,
		))
	}

	instructions = append(instructions, l.CloseAccountInstruction(
		settlement, destination, destination,
	))

	return instructions, nil
}
