package keyring

import (
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// Config holds the configuration for the KeyRing.
type Config struct {
	// Operating is the key of the custodial operating account.
	Operating solana.PrivateKey

	// Wallets are the managed wallets that may be asked to sign.
	Wallets []*Credential
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Operating) == 0 {
		return fmt.Errorf("operating key is required")
	}
	if err := validateKey(c.Operating); err != nil {
		return fmt.Errorf("invalid operating key: %w", err)
	}

	return nil
}

// KeyRing resolves public keys to the private keys able to sign for them.
// It is read-only after construction apart from Add, and safe for
// concurrent use.
type KeyRing struct {
	operating solana.PrivateKey

	keys map[solana.PublicKey]solana.PrivateKey
	mu   sync.RWMutex
}

// New creates a new KeyRing.
func New(cfg *Config) (*KeyRing, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	kr := &KeyRing{
		operating: cfg.Operating,
		keys:      make(map[solana.PublicKey]solana.PrivateKey),
	}
	kr.keys[cfg.Operating.PublicKey()] = cfg.Operating

	kr.Add(cfg.Wallets...)

	return kr, nil
}

// Add registers additional wallets.
func (kr *KeyRing) Add(wallets ...*Credential) {
	kr.mu.Lock()
	defer kr.mu.Unlock()

	for _, w := range wallets {
		kr.keys[w.PublicKey()] = w.PrivateKey
	}
}

// Operating returns the operating account's key.
func (kr *KeyRing) Operating() solana.PrivateKey {
	return kr.operating
}

// OperatingAddress returns the operating account's address.
func (kr *KeyRing) OperatingAddress() solana.PublicKey {
	return kr.operating.PublicKey()
}

// PrivateKey returns the signing key for pub, or nil if the key is not
// held. The signature matches the getter solana.Transaction.Sign expects.
func (kr *KeyRing) PrivateKey(pub solana.PublicKey) *solana.PrivateKey {
	kr.mu.RLock()
	defer kr.mu.RUnlock()

	key, ok := kr.keys[pub]
	if !ok {
		return nil
	}

	return &key
}

// IsLocalKey checks if a key is controlled by this key ring.
func (kr *KeyRing) IsLocalKey(pub solana.PublicKey) bool {
	return kr.PrivateKey(pub) != nil
}
