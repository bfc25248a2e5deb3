package amount

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/PumpLamp/DisperseSol/ledger"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// LabelPrefix prefixes the 1-based wallet index in object amount stores.
const LabelPrefix = "wallet"

// Label returns the object amount store label of the wallet at the 0-based
// index.
func Label(index int) string {
	return LabelPrefix + strconv.Itoa(index+1)
}

// FileSourced sends each wallet the amount listed for its position in an
// amount store.
type FileSourced struct {
	path    string
	amounts []decimal.Decimal
}

// LoadFileSourced reads the amount store at path. The store is either a JSON
// array of amounts in wallet order or an object keyed by walletN labels.
// Amounts below threshold are raised to exactly the threshold. The store
// must cover at least walletCount wallets.
func LoadFileSourced(path string, threshold decimal.Decimal,
	walletCount int) (*FileSourced, error) {

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{
			Setting: "amount store " + path,
			Err:     fmt.Errorf("%w: %v", ErrInvalidAmountStore, err),
		}
	}

	amounts, err := decodeAmounts(data)
	if err != nil {
		return nil, &ConfigError{
			Setting: "amount store " + path,
			Err:     fmt.Errorf("%w: %v", ErrInvalidAmountStore, err),
		}
	}

	if len(amounts) < walletCount {
		return nil, newConfigError("amount store "+path,
			ErrInvalidAmountStore, "%d amounts for %d wallets",
			len(amounts), walletCount)
	}

	for i, amt := range amounts {
		if amt.GreaterThan(ledger.MaxAmount) {
			return nil, &ConfigError{
				Setting: "amount store " + path,
				Err: fmt.Errorf("%w: wallet %d: %w: %v > %v",
					ErrInvalidAmountStore, i+1,
					ErrAmountTooLarge, amt, ledger.MaxAmount),
			}
		}

		if amt.LessThan(threshold) {
			log.Debugf("Raising amount for wallet %d from %v to %v",
				i+1, amt, threshold)

			amounts[i] = threshold
		}
	}

	log.Infof("Loaded %d amounts from %s", len(amounts), path)

	return &FileSourced{
		path:    path,
		amounts: amounts,
	}, nil
}

// decodeAmounts decodes either store layout into a dense, position ordered
// list.
func decodeAmounts(data []byte) ([]decimal.Decimal, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	if data[0] == '[' {
		var amounts []decimal.Decimal
		if err := json.Unmarshal(data, &amounts); err != nil {
			return nil, err
		}

		return amounts, nil
	}

	var labeled map[string]decimal.Decimal
	if err := json.Unmarshal(data, &labeled); err != nil {
		return nil, err
	}

	byIndex := make(map[int]decimal.Decimal, len(labeled))
	for label, amt := range labeled {
		index, err := parseLabel(label)
		if err != nil {
			return nil, err
		}
		byIndex[index] = amt
	}

	// Positions must be contiguous from 1; the first gap ends the list.
	amounts := make([]decimal.Decimal, 0, len(byIndex))
	for i := 1; ; i++ {
		amt, ok := byIndex[i]
		if !ok {
			break
		}
		amounts = append(amounts, amt)
	}

	return amounts, nil
}

// parseLabel returns the 1-based index of a walletN label.
func parseLabel(label string) (int, error) {
	digits, ok := strings.CutPrefix(label, LabelPrefix)
	if !ok {
		return 0, fmt.Errorf("unexpected label %q", label)
	}

	index, err := strconv.Atoi(digits)
	if err != nil || index < 1 {
		return 0, fmt.Errorf("unexpected label %q", label)
	}

	return index, nil
}

// Resolve implements Strategy.
func (f *FileSourced) Resolve(index int, _ solana.PublicKey) decimal.Decimal {
	return f.amounts[index]
}

// Name implements Strategy.
func (f *FileSourced) Name() string {
	return "file"
}

// Len returns the number of amounts in the store.
func (f *FileSourced) Len() int {
	return len(f.amounts)
}
