package keyring

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PumpLamp/DisperseSol/amount"
	"github.com/gagliardetto/solana-go"
)

const (
	// BackupDir is the directory, relative to the wallet store, existing
	// wallet stores are copied to before being overwritten.
	BackupDir = "walletBackup"

	// backupLayout names backups by day, month, hour and minute.
	backupLayout = "02-01-15-04"
)

// GenerateConfig describes a wallet generation run.
type GenerateConfig struct {
	// WalletPath is the wallet store to (over)write.
	WalletPath string

	// AmountPath, if set, receives a zeroed amount template with one
	// label per generated wallet.
	AmountPath string

	// Count is the number of wallets to generate.
	Count int

	// Now stamps the backup file name. Defaults to time.Now.
	Now func() time.Time
}

// Validate validates the configuration.
func (c *GenerateConfig) Validate() error {
	if c.WalletPath == "" {
		return fmt.Errorf("wallet path is required")
	}
	if c.Count < 2 {
		return fmt.Errorf("%w, got %d", ErrTooFewWallets, c.Count)
	}

	return nil
}

// GenerateResult reports what a generation run wrote.
type GenerateResult struct {
	// Wallets are the generated credentials in file order.
	Wallets []*Credential

	// BackupPath is the location the previous wallet store was copied
	// to, empty if there was nothing to back up.
	BackupPath string
}

// GenerateWallets creates fresh keypairs and writes them to the wallet
// store, backing up a non-empty existing store first.
func GenerateWallets(cfg *GenerateConfig) (*GenerateResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := time.Now
	if cfg.Now != nil {
		now = cfg.Now
	}

	backupPath, err := backupWalletStore(cfg.WalletPath, now())
	if err != nil {
		return nil, err
	}
	if backupPath != "" {
		log.Infof("Existing wallet store backed up as %s", backupPath)
	}

	log.Infof("Generating %d keypairs...", cfg.Count)

	result := &GenerateResult{
		BackupPath: backupPath,
	}
	lines := make([]string, 0, cfg.Count)
	amounts := make(map[string]int, cfg.Count)
	for i := 0; i < cfg.Count; i++ {
		key, err := solana.NewRandomPrivateKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate key: %w", err)
		}

		cred := &Credential{
			Address:    key.PublicKey().String(),
			PrivateKey: key,
			Line:       i + 1,
		}
		result.Wallets = append(result.Wallets, cred)

		lines = append(lines, cred.Address+separator+key.String())
		amounts[amount.Label(i)] = 0
	}

	data := []byte(strings.Join(lines, "\n"))
	if err := os.WriteFile(cfg.WalletPath, data, 0600); err != nil {
		return nil, fmt.Errorf("failed to write wallet store: %w", err)
	}

	log.Infof("Wallet addresses have been written to %s", cfg.WalletPath)

	if cfg.AmountPath == "" {
		return result, nil
	}

	template, err := json.MarshalIndent(amounts, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal amounts: %w", err)
	}
	if err := os.WriteFile(cfg.AmountPath, template, 0600); err != nil {
		return nil, fmt.Errorf("failed to write amount store: %w", err)
	}

	log.Infof("Amount template generated as %s", cfg.AmountPath)

	return result, nil
}

// backupWalletStore copies a non-empty wallet store into the backup
// directory and returns the backup path.
func backupWalletStore(path string, now time.Time) (string, error) {
	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return "", nil

	case err != nil:
		return "", fmt.Errorf("failed to stat wallet store: %w", err)

	case info.Size() == 0:
		return "", nil
	}

	dir := filepath.Join(filepath.Dir(path), BackupDir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create backup dir: %w", err)
	}

	backupPath := filepath.Join(
		dir, fmt.Sprintf("wallets-%s.txt", now.Format(backupLayout)),
	)

	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open wallet store: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(
		backupPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create backup: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("failed to copy wallet store: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("failed to close backup: %w", err)
	}

	return backupPath, nil
}
