// Package swapadapter defines the contract the graph compiler's swap node
// delegates to. Adapters (AMM quote providers, aggregators) are external
// collaborators; the core only verifies the shape of what they return.
package swapadapter

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// Request describes the swap a node wants compiled.
type Request struct {
	InputMint   solana.PublicKey
	OutputMint  solana.PublicKey
	Amount      uint64
	SlippageBps uint16
}

// Context carries the ambient values a swap adapter needs to build
// instructions for a specific signer.
type Context struct {
	SignerAddress solana.PublicKey
	WalletAddress solana.PublicKey
}

// QuoteMetadata is adapter-specific display information (route, price
// impact, ...); the core treats it opaquely and passes it through.
type QuoteMetadata map[string]interface{}

// Result is what an adapter returns for a compiled swap.
type Result struct {
	Instructions  []solana.Instruction
	ComputeUnits  uint32
	LookupTables  []solana.PublicKey
	QuoteMetadata QuoteMetadata
}

// Adapter is the single operation external swap providers must implement.
type Adapter interface {
	// BuildSwap returns pre-built instructions for the requested swap. The
	// core verifies only that the returned instructions reference the
	// signer as fee-payer where required and that lookup-table addresses
	// are resolvable — it never second-guesses the route itself.
	BuildSwap(ctx context.Context, req Request, adapterCtx Context) (*Result, error)
}
