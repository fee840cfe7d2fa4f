package graph

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/gagliardetto/solana-go"
	atapkg "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/memo"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/arcsign/solpipe/swapadapter"
)

// compileNode dispatches to the node-type compile contract. A node
// whose required fields are blank, whose pubkeys are malformed, or whose
// amount fails to parse yields a zero-instruction no-op rather than an error;
// only an unknown node type, a swap node with no adapter configured, or a
// swap adapter error is surfaced as a compile failure.
func compileNode(n Node, inputs map[string]string, cctx *CompileContext) (nodeOutput, error) {
	switch n.Type {
	case NodeWallet:
		return compileWallet(cctx)
	case NodeTransferNative:
		return compileTransferNative(inputs)
	case NodeTransferToken:
		return compileTransferToken(inputs)
	case NodeCreateATA:
		return compileCreateATA(inputs, cctx)
	case NodeSwap:
		return compileSwap(n, inputs, cctx)
	case NodeMemo:
		return compileMemo(inputs, cctx)
	case NodeExecuteConfig:
		return compileExecuteConfig(n, inputs)
	default:
		return nodeOutput{}, fmt.Errorf("unknown node type %q", n.Type)
	}
}

func compileWallet(cctx *CompileContext) (nodeOutput, error) {
	return nodeOutput{
		ports: map[string]string{"address": cctx.WalletAddress.String()},
	}, nil
}

func compileTransferNative(inputs map[string]string) (nodeOutput, error) {
	destination, destErr := solana.PublicKeyFromBase58(inputs["destination"])
	if inputs["destination"] == "" || destErr != nil {
		return nodeOutput{}, nil
	}
	source, srcErr := solana.PublicKeyFromBase58(inputs["source"])
	if inputs["source"] == "" || srcErr != nil {
		return nodeOutput{}, nil
	}

	lamports, ok := parseScaledAmount(inputs["amount"], 9)
	if !ok || lamports == 0 {
		return nodeOutput{}, nil
	}

	ix := system.NewTransferInstruction(lamports, source, destination).Build()
	return nodeOutput{
		instructions:   []solana.Instruction{ix},
		nativeLamports: lamports,
	}, nil
}

func compileTransferToken(inputs map[string]string) (nodeOutput, error) {
	owner, ownerErr := solana.PublicKeyFromBase58(inputs["owner"])
	destOwner, destErr := solana.PublicKeyFromBase58(inputs["destinationOwner"])
	mint, mintErr := solana.PublicKeyFromBase58(inputs["mint"])
	if inputs["owner"] == "" || inputs["destinationOwner"] == "" || inputs["mint"] == "" ||
		ownerErr != nil || destErr != nil || mintErr != nil {
		return nodeOutput{}, nil
	}

	decimals64, err := strconv.ParseUint(inputs["decimals"], 10, 8)
	if err != nil {
		return nodeOutput{}, nil
	}
	decimals := uint8(decimals64)

	amount, ok := parseScaledAmount(inputs["amount"], uint32(decimals))
	if !ok || amount == 0 {
		return nodeOutput{}, nil
	}

	sourceATA, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nodeOutput{}, nil
	}
	destATA, _, err := solana.FindAssociatedTokenAddress(destOwner, mint)
	if err != nil {
		return nodeOutput{}, nil
	}

	ix := token.NewTransferCheckedInstruction(
		amount,
		decimals,
		sourceATA,
		mint,
		destATA,
		owner,
		[]solana.PublicKey{},
	).Build()

	return nodeOutput{
		instructions: []solana.Instruction{ix},
		tokenTransfer: &TokenTransfer{
			Mint:      mint,
			BaseUnits: amount,
			Decimals:  decimals,
		},
	}, nil
}

// compileCreateATA emits the idempotent create instruction: the on-chain
// program handles an account that already exists, so the core never needs to
// check first.
func compileCreateATA(inputs map[string]string, cctx *CompileContext) (nodeOutput, error) {
	owner, ownerErr := solana.PublicKeyFromBase58(inputs["owner"])
	mint, mintErr := solana.PublicKeyFromBase58(inputs["mint"])
	if inputs["owner"] == "" || inputs["mint"] == "" || ownerErr != nil || mintErr != nil {
		return nodeOutput{}, nil
	}

	ix := atapkg.NewCreateIdempotentInstruction(cctx.SignerAddress, owner, mint).Build()
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nodeOutput{}, nil
	}

	return nodeOutput{
		instructions: []solana.Instruction{ix},
		ports:        map[string]string{"tokenAccount": ata.String()},
	}, nil
}

func compileSwap(n Node, inputs map[string]string, cctx *CompileContext) (nodeOutput, error) {
	inputMint, inErr := solana.PublicKeyFromBase58(inputs["inputMint"])
	outputMint, outErr := solana.PublicKeyFromBase58(inputs["outputMint"])
	if inputs["inputMint"] == "" || inputs["outputMint"] == "" || inErr != nil || outErr != nil {
		return nodeOutput{}, nil
	}

	amount, ok := parseScaledAmount(inputs["amount"], 0)
	if !ok || amount == 0 {
		return nodeOutput{}, nil
	}

	slippageBps := uint16(50)
	if raw, present := inputs["slippageBps"]; present && raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 16); err == nil {
			slippageBps = uint16(parsed)
		}
	}

	if cctx.SwapAdapter == nil {
		return nodeOutput{}, fmt.Errorf("swap node %q: no swap adapter configured", n.ID)
	}

	result, err := cctx.SwapAdapter.BuildSwap(cctx.Ctx, swapadapter.Request{
		InputMint:   inputMint,
		OutputMint:  outputMint,
		Amount:      amount,
		SlippageBps: slippageBps,
	}, swapadapter.Context{
		SignerAddress: cctx.SignerAddress,
		WalletAddress: cctx.WalletAddress,
	})
	if err != nil {
		return nodeOutput{}, fmt.Errorf("swap node %q: adapter: %w", n.ID, err)
	}

	decimals := uint8(0)
	if raw, present := inputs["inputDecimals"]; present {
		if parsed, perr := strconv.ParseUint(raw, 10, 8); perr == nil {
			decimals = uint8(parsed)
		}
	}

	return nodeOutput{
		instructions: result.Instructions,
		computeUnits: result.ComputeUnits,
		lookupTables: result.LookupTables,
		tokenTransfer: &TokenTransfer{
			Mint:      inputMint,
			BaseUnits: amount,
			Decimals:  decimals,
		},
	}, nil
}

func compileMemo(inputs map[string]string, cctx *CompileContext) (nodeOutput, error) {
	message := inputs["message"]
	if message == "" {
		return nodeOutput{}, nil
	}

	ix := memo.NewMemoInstruction([]byte(message), cctx.WalletAddress).Build()
	return nodeOutput{instructions: []solana.Instruction{ix}}, nil
}

func compileExecuteConfig(n Node, inputs map[string]string) (nodeOutput, error) {
	strategy := inputs["strategy"]
	if strategy == "" {
		return nodeOutput{}, nil
	}

	params := map[string]string{}
	for k, v := range n.Data {
		if k == "strategy" {
			continue
		}
		params[k] = v
	}

	return nodeOutput{
		executeConfig: &ExecuteConfigOutput{Strategy: strategy, Params: params},
	}, nil
}

// parseScaledAmount parses a decimal string and scales it by 10^decimals,
// truncating toward zero (floor, since amounts are non-negative). It returns
// false for malformed or negative input rather than erroring, matching the
// "amount strings failing numeric parsing yield zero instructions" rule.
func parseScaledAmount(amount string, decimals uint32) (uint64, bool) {
	if amount == "" {
		return 0, false
	}
	r, ok := new(big.Rat).SetString(amount)
	if !ok {
		return 0, false
	}
	if r.Sign() < 0 {
		return 0, false
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	r.Mul(r, new(big.Rat).SetInt(scale))

	q := new(big.Int).Quo(r.Num(), r.Denom())
	if !q.IsUint64() {
		return 0, false
	}
	return q.Uint64(), true
}
