// Package pipeline is the top-level orchestration entry point: a single
// Execute call compiles a graph, builds and signs the transaction, and
// dispatches to the strategy the execute-config node selected.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/rs/zerolog/log"

	"github.com/arcsign/solpipe/chainerr"
	"github.com/arcsign/solpipe/feeestimator"
	"github.com/arcsign/solpipe/graph"
	"github.com/arcsign/solpipe/jito"
	"github.com/arcsign/solpipe/metrics"
	"github.com/arcsign/solpipe/rpcclient"
	"github.com/arcsign/solpipe/signer"
	"github.com/arcsign/solpipe/submission"
	"github.com/arcsign/solpipe/tpu"
	"github.com/arcsign/solpipe/txbuilder"
)

// defaultStrategy is used when a graph carries no execute-config node.
const defaultStrategy = "standard"

// Params bundles everything one execute call needs: a compiled graph plus
// every transport the strategy multiplexer might dispatch to.
type Params struct {
	Graph      *graph.BuilderGraph
	CompileCtx graph.CompileContext

	RPC     *rpcclient.Client
	WS      *rpcclient.SubscriptionClient // optional; nil disables subscriptions
	TPU     *tpu.Client                   // optional; required for the ultra strategy
	Jito    *jito.Client                  // optional; required for economical/fast
	Signers *signer.Set

	Fanout      int
	JitoRegion  jito.Region
	TipLamports uint64
	TipAccount  solana.PublicKey // Jito tip account; required when Jito is used
	PriorityFee feeestimator.PriceConfig

	Metrics metrics.Recorder // optional; a fresh in-memory recorder is used if nil
}

// Result is the terminal outcome of one Execute call.
type Result struct {
	Confirmed   bool
	Signature   solana.Signature
	RoundsCount int
	BundleID    string
	Strategy    string
}

// Execute compiles the graph, builds and signs the transaction, and routes
// it through the strategy the execute-config node selected.
func Execute(ctx context.Context, p Params) (*Result, error) {
	artifact, err := graph.Compile(p.Graph, &p.CompileCtx)
	if err != nil {
		return nil, err
	}

	strategy := defaultStrategy
	if artifact.ExecuteConfig != nil && artifact.ExecuteConfig.Strategy != "" {
		strategy = artifact.ExecuteConfig.Strategy
	}

	builder := txbuilder.New(p.RPC, p.Signers).
		AddInstructions(artifact.Instructions).
		WithLookupTables(artifact.LookupTableAddresses).
		WithPriorityFee(p.PriorityFee)

	recorder := p.Metrics
	if recorder == nil {
		recorder = metrics.NewInMemoryRecorder()
	}

	start := time.Now()
	result, err := dispatch(ctx, strategy, builder, p)
	if result != nil {
		recorder.RecordConfirmation(strategy, result.Confirmed, result.RoundsCount, time.Since(start))
		result.Strategy = strategy
	}
	return result, err
}

func dispatch(ctx context.Context, strategy string, builder txbuilder.Builder, p Params) (*Result, error) {
	switch strategy {
	case "standard":
		return runRPCOnly(ctx, builder, p)
	case "economical":
		return runJitoOnly(ctx, builder, p)
	case "fast":
		return runJitoRacingRPC(ctx, builder, p)
	case "ultra":
		return runTPUAndRPC(ctx, builder, p)
	default:
		return nil, fmt.Errorf("pipeline: unknown strategy %q", strategy)
	}
}

func runRPCOnly(ctx context.Context, builder txbuilder.Builder, p Params) (*Result, error) {
	engine := submission.NewEngine(p.RPC, p.WS, nil, submission.Config{RPCEndpoint: true})
	outcome, err := builder.Execute(ctx, engine)
	if err != nil {
		return nil, err
	}
	return &Result{Confirmed: outcome.Confirmed, Signature: outcome.Signature, RoundsCount: outcome.RoundsCount}, nil
}

func runTPUAndRPC(ctx context.Context, builder txbuilder.Builder, p Params) (*Result, error) {
	if p.TPU == nil {
		return nil, fmt.Errorf("pipeline: ultra strategy requires a TPU client")
	}
	engine := submission.NewEngine(p.RPC, p.WS, p.TPU, submission.Config{RPCEndpoint: true, UseTPU: true, Fanout: p.Fanout})
	outcome, err := builder.Execute(ctx, engine)
	if err != nil {
		return nil, err
	}
	return &Result{Confirmed: outcome.Confirmed, Signature: outcome.Signature, RoundsCount: outcome.RoundsCount}, nil
}

func runJitoOnly(ctx context.Context, builder txbuilder.Builder, p Params) (*Result, error) {
	if p.Jito == nil {
		return nil, fmt.Errorf("pipeline: economical strategy requires a Jito client")
	}
	return submitBundleAndAwait(ctx, builder, p)
}

// runJitoRacingRPC starts a Jito bundle submission and an RPC send in
// parallel and returns whichever confirms first, cancelling the other.
func runJitoRacingRPC(ctx context.Context, builder txbuilder.Builder, p Params) (*Result, error) {
	if p.Jito == nil {
		return nil, fmt.Errorf("pipeline: fast strategy requires a Jito client")
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make(chan raceOutcome, 2)

	go func() {
		if p.Jito == nil {
			return
		}
		result, err := submitBundleAndAwait(raceCtx, builder, p)
		select {
		case out <- raceOutcome{result, err, "jito"}:
		case <-raceCtx.Done():
		}
	}()

	go func() {
		result, err := runRPCOnly(raceCtx, builder, p)
		select {
		case out <- raceOutcome{result, err, "rpc"}:
		case <-raceCtx.Done():
		}
	}()

	select {
	case r := <-out:
		if r.err == nil {
			cancel()
			return r.result, nil
		}
		log.Warn().Err(r.err).Str("channel", r.channel).Msg("pipeline: one racing channel failed, awaiting the other")
		select {
		case r2 := <-out:
			cancel()
			return r2.result, r2.err
		case <-ctx.Done():
			cancel()
			return nil, chainerr.NewCancelledError()
		}
	case <-ctx.Done():
		cancel()
		return nil, chainerr.NewCancelledError()
	}
}

type raceOutcome struct {
	result  *Result
	err     error
	channel string
}

func submitBundleAndAwait(ctx context.Context, builder txbuilder.Builder, p Params) (*Result, error) {
	wireBytes, _, err := builder.BuildSigned(ctx)
	if err != nil {
		return nil, err
	}

	bundle := [][]byte{wireBytes}
	if p.TipLamports > 0 && p.TipAccount != (solana.PublicKey{}) {
		tipWire, tipErr := buildTipTransaction(ctx, p)
		if tipErr == nil {
			bundle = [][]byte{tipWire, wireBytes}
		} else {
			log.Warn().Err(tipErr).Msg("pipeline: tip transaction build failed, submitting bundle without a tip")
		}
	}

	bundleID, err := p.Jito.SubmitBundle(ctx, p.JitoRegion, bundle)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(90 * time.Second)

	status, err := p.Jito.AwaitLanding(ctx, p.JitoRegion, bundleID, deadline)
	if err != nil {
		return nil, err
	}

	return &Result{Confirmed: status.Status == jito.StatusLanded, BundleID: bundleID, RoundsCount: 1}, nil
}

func buildTipTransaction(ctx context.Context, p Params) ([]byte, error) {
	feePayer := p.Signers.FeePayerAddress()
	tipIx := system.NewTransferInstruction(p.TipLamports, feePayer, p.TipAccount).Build()

	tipBuilder := txbuilder.New(p.RPC, p.Signers).
		AddInstruction(tipIx).
		WithPriorityFee(feeestimator.PriceConfig{Level: feeestimator.LevelNone})
	wire, _, err := tipBuilder.BuildSigned(ctx)
	return wire, err
}
