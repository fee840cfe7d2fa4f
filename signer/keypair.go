package signer

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// LocalKeypairSigner signs with an in-process private key. It exists for the
// demo CLI and for tests; a production deployment would swap in a signer
// backed by a hardware wallet or remote signing service without touching the
// rest of the pipeline.
type LocalKeypairSigner struct {
	priv solana.PrivateKey
}

// NewLocalKeypairSigner wraps an already-loaded private key.
func NewLocalKeypairSigner(priv solana.PrivateKey) *LocalKeypairSigner {
	return &LocalKeypairSigner{priv: priv}
}

// LoadKeypairSigner reads a Solana CLI keygen JSON file (a byte array of the
// 64-byte private key) from path.
func LoadKeypairSigner(path string) (*LocalKeypairSigner, error) {
	priv, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, err
	}
	return &LocalKeypairSigner{priv: priv}, nil
}

func (s *LocalKeypairSigner) Address() solana.PublicKey {
	return s.priv.PublicKey()
}

func (s *LocalKeypairSigner) Sign(ctx context.Context, message []byte) (solana.Signature, error) {
	return s.priv.Sign(message)
}
