package signer

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"

	slip10 "github.com/anyproto/go-slip10"
	"github.com/gagliardetto/solana-go"
	"github.com/tyler-smith/go-bip39"
	"github.com/tyler-smith/go-bip39/wordlists"
)

// SolanaDerivationPath is the BIP-44 path Solana's own CLI and wallet
// ecosystem use for ed25519 keys: every component hardened, account index in
// the third position, change fixed at 0.
func SolanaDerivationPath(account uint32) string {
	return fmt.Sprintf("m/44'/501'/%d'/0'", account)
}

// GenerateMnemonic produces a BIP39 mnemonic phrase. Valid word counts are 12
// (128-bit entropy) and 24 (256-bit entropy).
func GenerateMnemonic(wordCount int) (string, error) {
	var entropyBits int
	switch wordCount {
	case 12:
		entropyBits = 128
	case 24:
		entropyBits = 256
	default:
		return "", fmt.Errorf("signer: invalid word count %d: must be 12 or 24", wordCount)
	}

	entropy := make([]byte, entropyBits/8)
	if _, err := rand.Read(entropy); err != nil {
		return "", fmt.Errorf("signer: generate entropy: %w", err)
	}

	bip39.SetWordList(wordlists.English)
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("signer: generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

// NewFromMnemonic derives a LocalKeypairSigner from a BIP39 mnemonic using
// SLIP-10's ed25519 curve at SolanaDerivationPath(account). passphrase is the
// optional BIP39 extension word; pass "" for none.
func NewFromMnemonic(mnemonic, passphrase string, account uint32) (*LocalKeypairSigner, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, errors.New("signer: invalid mnemonic: checksum verification failed or invalid words")
	}
	seed := bip39.NewSeed(mnemonic, passphrase)

	node, err := slip10.DeriveForPath(SolanaDerivationPath(account), seed)
	if err != nil {
		return nil, fmt.Errorf("signer: derive ed25519 key: %w", err)
	}

	_, priv := node.Keypair()
	edPriv, err := toEd25519PrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("signer: derive ed25519 key: %w", err)
	}

	return &LocalKeypairSigner{priv: solana.PrivateKey(edPriv)}, nil
}

// toEd25519PrivateKey normalizes a SLIP-10 node's raw private-key bytes (a
// 32-byte seed) to the 64-byte seed||publicKey form Go's ed25519 and
// solana.PrivateKey both expect.
func toEd25519PrivateKey(raw []byte) (ed25519.PrivateKey, error) {
	switch len(raw) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(raw), nil
	default:
		return nil, fmt.Errorf("unexpected ed25519 key material length %d", len(raw))
	}
}
