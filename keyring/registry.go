package keyring

import (
	"bytes"
	"crypto/ed25519"
	"fmt"
	"os"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/gagliardetto/solana-go"
)

const (
	// separator splits the address column from the secret column.
	separator = ":"

	// maxShownLen is the longest column-less line shown verbatim in
	// diagnostics.
	maxShownLen = 16
)

// Credential is one managed wallet read from the wallet store.
type Credential struct {
	// Address is the address column exactly as stored.
	Address string

	// PrivateKey is the decoded key material.
	PrivateKey solana.PrivateKey

	// Line is the 1-based line the credential was read from.
	Line int
}

// PublicKey returns the address derived from the key material. All
// operations use this rather than the stored column.
func (c *Credential) PublicKey() solana.PublicKey {
	return c.PrivateKey.PublicKey()
}

// Matches reports whether the stored address is the derived one.
func (c *Credential) Matches() bool {
	return c.Address == c.PublicKey().String()
}

// LoadOption tweaks how a wallet store is read.
type LoadOption func(*loadOptions)

type loadOptions struct {
	strict bool
}

// WithStrictAddresses skips lines whose stored address is not derived from
// their secret instead of only warning about them.
func WithStrictAddresses() LoadOption {
	return func(o *loadOptions) {
		o.strict = true
	}
}

// Registry is the immutable list of credentials read for one flow.
type Registry struct {
	path        string
	credentials []*Credential
	skipped     []*ParseError
	mismatched  []*Credential
}

// Load reads the wallet store at path. Malformed lines are logged and
// skipped; only a failure to read the file itself is returned.
func Load(path string, opts ...LoadOption) (*Registry, error) {
	var options loadOptions
	for _, opt := range opts {
		opt(&options)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read wallet store: %w", err)
	}

	reg := &Registry{
		path: path,
	}

	lines := bytes.Split(data, []byte("\n"))
	for i, raw := range lines {
		line := strings.TrimSpace(string(raw))
		if line == "" {
			continue
		}

		cred, err := parseLine(line)
		if err == nil && !cred.Matches() {
			if options.strict {
				err = fmt.Errorf("%w: derived %v", ErrAddressMismatch,
					cred.PublicKey())
			} else {
				log.Warnf("Wallet line %d: stored address %s does not "+
					"match derived address %v, using derived",
					i+1, cred.Address, cred.PublicKey())

				cred.Line = i + 1
				reg.mismatched = append(reg.mismatched, cred)
			}
		}
		if err != nil {
			parseErr := &ParseError{
				Line:    i + 1,
				Content: redact(line),
				Err:     err,
			}
			log.Errorf("Skipping wallet store entry: %v", parseErr)

			reg.skipped = append(reg.skipped, parseErr)
			continue
		}

		cred.Line = i + 1
		reg.credentials = append(reg.credentials, cred)
	}

	log.Infof("Loaded %d wallets from %s (%d skipped)",
		len(reg.credentials), path, len(reg.skipped))

	return reg, nil
}

// parseLine decodes a single non-blank address:secret line.
func parseLine(line string) (*Credential, error) {
	address, secret, found := strings.Cut(line, separator)
	address = strings.TrimSpace(address)
	secret = strings.TrimSpace(secret)
	if !found || address == "" || secret == "" {
		return nil, ErrMalformedLine
	}

	key, err := DecodeSecret(secret)
	if err != nil {
		return nil, err
	}

	return &Credential{
		Address:    address,
		PrivateKey: key,
	}, nil
}

// DecodeSecret decodes a base58 secret into ed25519 key material, checking
// that the public half belongs to the seed half.
func DecodeSecret(secret string) (solana.PrivateKey, error) {
	raw := base58.Decode(secret)
	if err := validateKey(raw); err != nil {
		return nil, err
	}

	return solana.PrivateKey(raw), nil
}

// validateKey checks that raw is a 64 byte ed25519 key whose public half is
// derived from its seed half.
func validateKey(raw []byte) error {
	if len(raw) != ed25519.PrivateKeySize {
		return fmt.Errorf("%w: %d bytes, want %d", ErrInvalidSecret,
			len(raw), ed25519.PrivateKeySize)
	}

	derived := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
	if !bytes.Equal(derived[ed25519.SeedSize:], raw[ed25519.SeedSize:]) {
		return fmt.Errorf("%w: public half does not match seed",
			ErrInvalidSecret)
	}

	return nil
}

// Path returns the wallet store the registry was read from.
func (r *Registry) Path() string {
	return r.path
}

// Credentials returns the loaded credentials in file order.
func (r *Registry) Credentials() []*Credential {
	return append([]*Credential(nil), r.credentials...)
}

// Skipped returns one error per skipped line, in file order.
func (r *Registry) Skipped() []*ParseError {
	return append([]*ParseError(nil), r.skipped...)
}

// Mismatched returns the loaded credentials whose stored address column
// differs from the derived address.
func (r *Registry) Mismatched() []*Credential {
	return append([]*Credential(nil), r.mismatched...)
}

// Len returns the number of loaded credentials.
func (r *Registry) Len() int {
	return len(r.credentials)
}

// redact hides the secret column of a wallet line.
func redact(line string) string {
	if address, _, found := strings.Cut(line, separator); found {
		return address + separator + "<redacted>"
	}
	if len(line) > maxShownLen {
		return line[:maxShownLen/2] + "..."
	}

	return line
}
