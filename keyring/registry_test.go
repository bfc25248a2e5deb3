package keyring

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

// walletLine formats a well-formed wallet store line for key.
func walletLine(key solana.PrivateKey) string {
	return key.PublicKey().String() + ":" + key.String()
}

// writeStore writes lines to a temporary wallet store.
func writeStore(t *testing.T, lines ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "wallets.txt")
	err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0600)
	require.NoError(t, err)

	return path
}

// TestLoad_FileOrder tests that well-formed lines load in file order and
// blank lines are ignored.
func TestLoad_FileOrder(t *testing.T) {
	t.Parallel()

	keys := []solana.PrivateKey{
		solana.NewWallet().PrivateKey,
		solana.NewWallet().PrivateKey,
		solana.NewWallet().PrivateKey,
	}
	path := writeStore(t,
		walletLine(keys[0]), "", "   ", walletLine(keys[1])+"\r",
		walletLine(keys[2]), "",
	)

	reg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 3, reg.Len())
	require.Empty(t, reg.Skipped())
	require.Empty(t, reg.Mismatched())
	require.Equal(t, path, reg.Path())

	creds := reg.Credentials()
	for i, key := range keys {
		require.Equal(t, key.PublicKey(), creds[i].PublicKey())
		require.True(t, creds[i].Matches())
	}
	require.Equal(t, 1, creds[0].Line)
	require.Equal(t, 4, creds[1].Line)
	require.Equal(t, 5, creds[2].Line)
}

// TestLoad_SkipsMalformed tests that every malformed line is skipped with
// exactly one diagnostic while the remaining lines still load.
func TestLoad_SkipsMalformed(t *testing.T) {
	t.Parallel()

	first := solana.NewWallet().PrivateKey
	last := solana.NewWallet().PrivateKey

	path := writeStore(t,
		walletLine(first),
		"bad-line",
		first.PublicKey().String()+":",
		":"+last.String(),
		first.PublicKey().String()+":notbase58!!",
		first.PublicKey().String()+":3xyz",
		walletLine(last),
	)

	reg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 2, reg.Len())

	creds := reg.Credentials()
	require.Equal(t, first.PublicKey(), creds[0].PublicKey())
	require.Equal(t, last.PublicKey(), creds[1].PublicKey())

	skipped := reg.Skipped()
	require.Len(t, skipped, 5)

	wantLines := []int{2, 3, 4, 5, 6}
	for i, parseErr := range skipped {
		require.Equal(t, wantLines[i], parseErr.Line)
	}
	require.ErrorIs(t, skipped[0], ErrMalformedLine)
	require.ErrorIs(t, skipped[1], ErrMalformedLine)
	require.ErrorIs(t, skipped[2], ErrMalformedLine)
	require.ErrorIs(t, skipped[3], ErrInvalidSecret)
	require.ErrorIs(t, skipped[4], ErrInvalidSecret)

	var parseErr *ParseError
	require.True(t, errors.As(skipped[0], &parseErr))
	require.Contains(t, parseErr.Error(), "line 2")
	require.Contains(t, parseErr.Error(), "bad-line")
}

// TestLoad_Idempotent tests that loading an unchanged store twice yields
// the same credentials.
func TestLoad_Idempotent(t *testing.T) {
	t.Parallel()

	path := writeStore(t,
		walletLine(solana.NewWallet().PrivateKey),
		"bad-line",
		walletLine(solana.NewWallet().PrivateKey),
	)

	first, err := Load(path)
	require.NoError(t, err)
	second, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, first.Credentials(), second.Credentials())
	require.Len(t, second.Skipped(), 1)
}

// TestLoad_AddressMismatch tests that a stored address differing from the
// derived one warns by default and skips in strict mode.
func TestLoad_AddressMismatch(t *testing.T) {
	t.Parallel()

	key := solana.NewWallet().PrivateKey
	other := solana.NewWallet().PublicKey()
	path := writeStore(t,
		other.String()+":"+key.String(),
		walletLine(solana.NewWallet().PrivateKey),
	)

	reg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 2, reg.Len())
	require.Len(t, reg.Mismatched(), 1)

	mismatched := reg.Mismatched()[0]
	require.False(t, mismatched.Matches())
	require.Equal(t, other.String(), mismatched.Address)
	require.Equal(t, key.PublicKey(), mismatched.PublicKey())

	strict, err := Load(path, WithStrictAddresses())
	require.NoError(t, err)
	require.Equal(t, 1, strict.Len())
	require.Empty(t, strict.Mismatched())
	require.Len(t, strict.Skipped(), 1)
	require.ErrorIs(t, strict.Skipped()[0], ErrAddressMismatch)
}

// TestLoad_MissingFile tests that an unreadable store fails the load.
func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestDecodeSecret_Inconsistent tests that key material whose public half
// is not derived from the seed is rejected.
func TestDecodeSecret_Inconsistent(t *testing.T) {
	t.Parallel()

	key := solana.NewWallet().PrivateKey
	tampered := append(solana.PrivateKey(nil), key...)
	tampered[63] ^= 0x01

	_, err := DecodeSecret(tampered.String())
	require.ErrorIs(t, err, ErrInvalidSecret)

	decoded, err := DecodeSecret(key.String())
	require.NoError(t, err)
	require.Equal(t, key.PublicKey(), decoded.PublicKey())
}

// TestParseError_Redacted tests that skipped lines never carry the secret,
// whichever way the diagnostic is printed.
func TestParseError_Redacted(t *testing.T) {
	t.Parallel()

	mismatched := solana.NewWallet().PrivateKey
	headless := solana.NewWallet().PrivateKey
	bare := solana.NewWallet().PrivateKey
	other := solana.NewWallet().PublicKey()

	path := writeStore(t,
		other.String()+":"+mismatched.String(),
		":"+headless.String(),
		bare.String(),
	)

	reg, err := Load(path, WithStrictAddresses())
	require.NoError(t, err)
	require.Zero(t, reg.Len())

	skipped := reg.Skipped()
	require.Len(t, skipped, 3)
	require.ErrorIs(t, skipped[0], ErrAddressMismatch)
	require.Contains(t, skipped[0].Content, other.String())

	secrets := []string{
		mismatched.String(), headless.String(), bare.String(),
	}
	for i, parseErr := range skipped {
		for _, secret := range secrets {
			require.NotContains(t, parseErr.Content, secret)
			require.NotContains(t, parseErr.Error(), secret)
			require.NotContains(t, fmt.Sprintf("%+v", parseErr), secret)
			require.NotContains(t, fmt.Sprintf("%#v", *parseErr),
				secret, "line %d", i+1)
		}
	}
}
