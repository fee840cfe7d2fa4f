// Package signer defines the signing capability the transaction builder
// consumes. Signers are external collaborators (wallet prompts, hardware
// devices, in-process keypairs); the core never persists one.
package signer

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// Signer exposes an address and a suspending sign operation. Implementations
// may prompt a user or round-trip to a hardware device; callers must assume
// Sign can block.
type Signer interface {
	Address() solana.PublicKey
	Sign(ctx context.Context, message []byte) (solana.Signature, error)
}

// Set resolves a signer by account address, used by the builder to check
// that every writable/readonly-signer account in the compiled instructions
// has a corresponding signer before signing.
type Set struct {
	byAddress map[solana.PublicKey]Signer
	feePayer  solana.PublicKey
}

// NewSet builds a signer set. feePayer must be one of the provided signers'
// addresses; its Sign is always invoked first to stabilize signature
// ordering.
func NewSet(feePayer solana.PublicKey, signers ...Signer) *Set {
	s := &Set{byAddress: make(map[solana.PublicKey]Signer, len(signers)), feePayer: feePayer}
	for _, sg := range signers {
		s.byAddress[sg.Address()] = sg
	}
	return s
}

// Lookup returns the signer for an address, if present.
func (s *Set) Lookup(address solana.PublicKey) (Signer, bool) {
	sg, ok := s.byAddress[address]
	return sg, ok
}

// FeePayer returns the fee-payer signer and whether it is registered.
func (s *Set) FeePayer() (Signer, bool) {
	return s.Lookup(s.feePayer)
}

// FeePayerAddress returns the configured fee-payer address.
func (s *Set) FeePayerAddress() solana.PublicKey {
	return s.feePayer
}

// Missing returns every address in required that has no registered signer,
// preserving input order.
func (s *Set) Missing(required []solana.PublicKey) []solana.PublicKey {
	var missing []solana.PublicKey
	seen := map[solana.PublicKey]bool{}
	for _, addr := range required {
		if seen[addr] {
			continue
		}
		seen[addr] = true
		if _, ok := s.byAddress[addr]; !ok {
			missing = append(missing, addr)
		}
	}
	return missing
}
