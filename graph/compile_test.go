package graph

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() *CompileContext {
	return &CompileContext{
		Ctx:           context.Background(),
		SignerAddress: solana.NewWallet().PublicKey(),
		WalletAddress: solana.NewWallet().PublicKey(),
	}
}

func TestCompileEmptyGraphIsEmptyArtifactNotError(t *testing.T) {
	g := &BuilderGraph{}
	artifact, err := Compile(g, testContext())
	require.NoError(t, err)
	assert.Empty(t, artifact.Instructions)
	assert.Zero(t, artifact.Transfers.NativeLamports)
}

func TestCompileSingleWalletNodeDefaultsOutput(t *testing.T) {
	cctx := testContext()
	g := &BuilderGraph{Nodes: []Node{{ID: "w1", Type: NodeWallet}}}
	artifact, err := Compile(g, cctx)
	require.NoError(t, err)
	assert.Empty(t, artifact.Instructions)
}

func TestCompileNativeTransferProducesOneInstruction(t *testing.T) {
	cctx := testContext()
	dest := solana.NewWallet().PublicKey()
	g := &BuilderGraph{
		Nodes: []Node{
			{ID: "t1", Type: NodeTransferNative, Data: map[string]string{
				"destination": dest.String(),
				"amount":      "0.1",
			}},
		},
	}

	artifact, err := Compile(g, cctx)
	require.NoError(t, err)
	require.Len(t, artifact.Instructions, 1)
	assert.EqualValues(t, 100_000_000, artifact.Transfers.NativeLamports)
}

func TestCompileNativeTransferMissingDestinationIsNoOp(t *testing.T) {
	cctx := testContext()
	g := &BuilderGraph{
		Nodes: []Node{
			{ID: "t1", Type: NodeTransferNative, Data: map[string]string{"amount": "0.1"}},
		},
	}

	artifact, err := Compile(g, cctx)
	require.NoError(t, err)
	assert.Empty(t, artifact.Instructions)
}

func TestCompileNativeTransferMalformedAmountIsNoOp(t *testing.T) {
	cctx := testContext()
	dest := solana.NewWallet().PublicKey()
	g := &BuilderGraph{
		Nodes: []Node{
			{ID: "t1", Type: NodeTransferNative, Data: map[string]string{
				"destination": dest.String(),
				"amount":      "not-a-number",
			}},
		},
	}

	artifact, err := Compile(g, cctx)
	require.NoError(t, err)
	assert.Empty(t, artifact.Instructions)
}

func TestCompileBatchedTransfersPreservesInsertionOrder(t *testing.T) {
	cctx := testContext()
	d1, d2, d3 := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
	g := &BuilderGraph{
		Nodes: []Node{
			{ID: "w", Type: NodeWallet},
			{ID: "t1", Type: NodeTransferNative, Data: map[string]string{"destination": d1.String(), "amount": "1"}},
			{ID: "t2", Type: NodeTransferNative, Data: map[string]string{"destination": d2.String(), "amount": "2"}},
			{ID: "t3", Type: NodeTransferNative, Data: map[string]string{"destination": d3.String(), "amount": "3"}},
		},
		Edges: []Edge{
			{SourceNodeID: "w", SourcePort: "address", TargetNodeID: "t1", TargetPort: "source", Kind: EdgeVertical},
			{SourceNodeID: "t1", SourcePort: "done", TargetNodeID: "t2", TargetPort: "after", Kind: EdgeHorizontal},
			{SourceNodeID: "t2", SourcePort: "done", TargetNodeID: "t3", TargetPort: "after", Kind: EdgeHorizontal},
		},
	}

	artifact, err := Compile(g, cctx)
	require.NoError(t, err)
	require.Len(t, artifact.Instructions, 3)
	for i, d := range []solana.PublicKey{d1, d2, d3} {
		assert.True(t, artifact.Instructions[i].Accounts()[1].PublicKey.Equals(d), "instruction %d destination", i)
	}
	assert.EqualValues(t, 6_000_000_000, artifact.Transfers.NativeLamports)
}

func TestValidateRejectsCycle(t *testing.T) {
	g := &BuilderGraph{
		Nodes: []Node{
			{ID: "a", Type: NodeMemo, Data: map[string]string{"message": "x"}},
			{ID: "b", Type: NodeMemo, Data: map[string]string{"message": "y"}},
		},
		Edges: []Edge{
			{SourceNodeID: "a", SourcePort: "o", TargetNodeID: "b", TargetPort: "i", Kind: EdgeVertical},
			{SourceNodeID: "b", SourcePort: "o", TargetNodeID: "a", TargetPort: "i", Kind: EdgeVertical},
		},
	}

	errs := Validate(g)
	require.NotEmpty(t, errs)
}

func TestValidateRejectsMultipleExecuteConfigNodes(t *testing.T) {
	g := &BuilderGraph{
		Nodes: []Node{
			{ID: "c1", Type: NodeExecuteConfig, Data: map[string]string{"strategy": "fast"}},
			{ID: "c2", Type: NodeExecuteConfig, Data: map[string]string{"strategy": "standard"}},
		},
	}

	errs := Validate(g)
	require.NotEmpty(t, errs)
}

func TestCompileExecuteConfigSurfacesStrategy(t *testing.T) {
	cctx := testContext()
	g := &BuilderGraph{
		Nodes: []Node{
			{ID: "cfg", Type: NodeExecuteConfig, Data: map[string]string{"strategy": "ultra", "tipLamports": "5000"}},
		},
	}

	artifact, err := Compile(g, cctx)
	require.NoError(t, err)
	require.NotNil(t, artifact.ExecuteConfig)
	assert.Equal(t, "ultra", artifact.ExecuteConfig.Strategy)
	assert.Equal(t, "5000", artifact.ExecuteConfig.Params["tipLamports"])
}

func TestCompileCreateAssociatedAccountIsIdempotentInstruction(t *testing.T) {
	cctx := testContext()
	mint := solana.NewWallet().PublicKey()
	g := &BuilderGraph{
		Nodes: []Node{
			{ID: "ata", Type: NodeCreateATA, Data: map[string]string{"mint": mint.String()}},
		},
	}

	artifact, err := Compile(g, cctx)
	require.NoError(t, err)
	require.Len(t, artifact.Instructions, 1)
}

func TestParseScaledAmountFloorsTowardZero(t *testing.T) {
	v, ok := parseScaledAmount("0.123456789", 9)
	require.True(t, ok)
	assert.EqualValues(t, 123456789, v)

	_, ok = parseScaledAmount("-1", 9)
	assert.False(t, ok)

	_, ok = parseScaledAmount("garbage", 9)
	assert.False(t, ok)
}
