package solana

import (
	"errors"
	"fmt"
	"os"
	"strings"

	solana "github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/mr-tron/base58"
)

// DefaultKeyEnv is the variable read by LoadPrivateKeyFromEnv.
const DefaultKeyEnv = "SOLANA_PRIVATE_KEY_BASE58"

// ErrMissingPrivateKey is returned when no signing key is configured. It is the only fatal startup condition.
var ErrMissingPrivateKey = errors.New("private key not set")

// LoadPrivateKeyFromEnv reads the key from SOLANA_PRIVATE_KEY_BASE58.
func LoadPrivateKeyFromEnv() (solana.PrivateKey, error) {
	return LoadPrivateKey(DefaultKeyEnv)
}

// LoadPrivateKey reads a base58 ed25519 keypair (64 bytes) from the named variable.
func LoadPrivateKey(envName string) (solana.PrivateKey, error) {
	_ = godotenv.Load() // best-effort
	if envName == "" {
		envName = DefaultKeyEnv
	}
	b58 := strings.TrimSpace(os.Getenv(envName))
	if b58 == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingPrivateKey, envName)
	}
	raw, err := base58.Decode(b58)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", envName, err)
	}
	if len(raw) != 64 {
		return nil, fmt.Errorf("decode %s: expected 64 bytes, got %d", envName, len(raw))
	}
	return solana.PrivateKey(raw), nil
}
