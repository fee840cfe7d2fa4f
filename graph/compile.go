package graph

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/arcsign/solpipe/chainerr"
	"github.com/arcsign/solpipe/swapadapter"
)

// CompileContext carries the ambient values node compile functions need;
// it mirrors the {signer-address, rpc-handle, subscriptions-handle,
// wallet-address} tuple, with rpc/subscriptions collapsed into the swap
// adapter (the only node type that performs a network round trip).
type CompileContext struct {
	Ctx           context.Context
	SignerAddress solana.PublicKey
	WalletAddress solana.PublicKey
	SwapAdapter   swapadapter.Adapter
}

// TokenTransfer records one token-denominated value movement for display.
type TokenTransfer struct {
	Mint      solana.PublicKey
	BaseUnits uint64
	Decimals  uint8
}

// TransferSummary aggregates every value transfer a compiled artifact makes.
type TransferSummary struct {
	NativeLamports uint64
	Tokens         []TokenTransfer
}

// ExecuteConfigOutput is the payload published by an execute-config node:
// the strategy selected for submission plus any strategy-specific params.
type ExecuteConfigOutput struct {
	Strategy string
	Params   map[string]string
}

// CompiledArtifact is the atomic output of Compile: an ordered instruction
// list plus the shared resources the transaction builder needs. It is never
// mutated after production.
type CompiledArtifact struct {
	Instructions          []solana.Instruction
	ComputeUnitHint        uint32
	LookupTableAddresses  []solana.PublicKey
	Transfers             TransferSummary
	ExecuteConfig         *ExecuteConfigOutput
}

// nodeOutput is what a single node-type compile function produces.
type nodeOutput struct {
	ports          map[string]string
	instructions   []solana.Instruction
	computeUnits   uint32
	lookupTables   []solana.PublicKey
	nativeLamports uint64
	tokenTransfer  *TokenTransfer
	executeConfig  *ExecuteConfigOutput
}

// Compile transforms a validated graph into a CompiledArtifact following
// Kahn topological order. An empty graph compiles to an empty artifact, not
// an error. Structural violations (I1, I3, I4) are fatal; a node whose
// required input ports are blank is not an error here and compiles to a
// zero-instruction no-op.
func Compile(g *BuilderGraph, cctx *CompileContext) (*CompiledArtifact, error) {
	var errs []error
	errs = append(errs, validateAcyclic(g)...)
	errs = append(errs, validateSingleExecuteConfig(g)...)
	errs = append(errs, validateHorizontalGroups(g)...)
	if len(errs) > 0 {
		return nil, chainerr.NewCompilationError("", fmt.Sprintf("graph invalid: %v", errs[0]), errs[0])
	}

	order, err := kahnOrder(g)
	if err != nil {
		return nil, chainerr.NewCompilationError("", "graph contains a cycle", err)
	}

	artifact := &CompiledArtifact{}
	outputsByNode := make(map[string]map[string]string, len(order))

	for _, n := range order {
		inputs := resolveInputs(g, n, outputsByNode, cctx.WalletAddress)

		out, err := compileNode(n, inputs, cctx)
		if err != nil {
			return nil, chainerr.NewCompilationError(n.ID, err.Error(), err)
		}

		outputsByNode[n.ID] = out.ports
		artifact.Instructions = append(artifact.Instructions, out.instructions...)
		artifact.ComputeUnitHint += out.computeUnits
		artifact.LookupTableAddresses = appendUniqueKeys(artifact.LookupTableAddresses, out.lookupTables)
		artifact.Transfers.NativeLamports += out.nativeLamports
		if out.tokenTransfer != nil {
			artifact.Transfers.Tokens = append(artifact.Transfers.Tokens, *out.tokenTransfer)
		}
		if out.executeConfig != nil {
			artifact.ExecuteConfig = out.executeConfig
		}
	}

	return artifact, nil
}

// resolveInputs gathers a node's input ports: an incoming edge's source
// output takes priority, falling back to the node's own Data entry (which
// may itself be the default-from-wallet marker, resolved here).
func resolveInputs(g *BuilderGraph, n Node, outputsByNode map[string]map[string]string, wallet solana.PublicKey) map[string]string {
	inputs := map[string]string{}
	for k, v := range n.Data {
		inputs[k] = v
	}

	for _, e := range g.Edges {
		if e.TargetNodeID != n.ID {
			continue
		}
		if srcOut, ok := outputsByNode[e.SourceNodeID]; ok {
			if v, ok := srcOut[e.SourcePort]; ok {
				inputs[e.TargetPort] = v
			}
		}
	}

	for _, port := range walletDefaultPorts[n.Type] {
		if inputs[port] == "" {
			inputs[port] = wallet.String()
		}
	}

	return inputs
}

// walletDefaultPorts lists, per node type, the ports that fall back to the
// wallet address when left blank (the "default-from-wallet marker" of I2).
var walletDefaultPorts = map[NodeType][]string{
	NodeTransferNative: {"source"},
	NodeTransferToken:  {"owner"},
	NodeCreateATA:      {"owner"},
}

func appendUniqueKeys(existing []solana.PublicKey, add []solana.PublicKey) []solana.PublicKey {
	for _, k := range add {
		found := false
		for _, e := range existing {
			if e.Equals(k) {
				found = true
				break
			}
		}
		if !found {
			existing = append(existing, k)
		}
	}
	return existing
}

// kahnOrder performs Kahn's topological sort, tie-breaking on equal
// in-degree by preserving insertion order. A result shorter than len(nodes)
// means the graph contains a cycle.
func kahnOrder(g *BuilderGraph) ([]Node, error) {
	index := make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		index[n.ID] = i
	}

	inDegree := make([]int, len(g.Nodes))
	for _, e := range g.Edges {
		if ti, ok := index[e.TargetNodeID]; ok {
			if _, ok := index[e.SourceNodeID]; ok {
				inDegree[ti]++
			}
		}
	}

	adj := make([][]int, len(g.Nodes))
	for _, e := range g.Edges {
		si, sok := index[e.SourceNodeID]
		ti, tok := index[e.TargetNodeID]
		if sok && tok {
			adj[si] = append(adj[si], ti)
		}
	}

	visited := make([]bool, len(g.Nodes))
	var order []Node

	for len(order) < len(g.Nodes) {
		next := -1
		for i := range g.Nodes {
			if !visited[i] && inDegree[i] == 0 {
				next = i
				break
			}
		}
		if next == -1 {
			return nil, fmt.Errorf("cycle detected: %d of %d nodes ordered", len(order), len(g.Nodes))
		}
		visited[next] = true
		order = append(order, g.Nodes[next])
		for _, j := range adj[next] {
			inDegree[j]--
		}
	}

	return order, nil
}
