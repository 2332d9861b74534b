package solana

import (
	"fmt"

	solana "github.com/gagliardetto/solana-go"
)

// Signer holds the wallet key. It is read-only after construction and safe to share between goroutines.
type Signer struct {
	key solana.PrivateKey
	pub solana.PublicKey
}

func NewSigner(key solana.PrivateKey) *Signer {
	return &Signer{key: key, pub: key.PublicKey()}
}

func (s *Signer) PublicKey() solana.PublicKey { return s.pub }

// SignTransaction signs tx in place for the owner key only.
func (s *Signer) SignTransaction(tx *solana.Transaction) error {
	if tx == nil {
		return fmt.Errorf("sign: nil transaction")
	}
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.pub) {
			k := s.key
			return &k
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}
	return nil
}
