// Command solpipe-demo drives one pipeline.Execute call from environment
// configuration. It owns every piece of I/O the core refuses to do itself:
// reading the environment, loading a keypair from disk, and printing the
// result. Output follows the dashboard convention: a single JSON line on
// stdout, human-readable progress on stderr.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/arcsign/solpipe/config"
	"github.com/arcsign/solpipe/feeestimator"
	"github.com/arcsign/solpipe/graph"
	"github.com/arcsign/solpipe/internal/cli"
	"github.com/arcsign/solpipe/jito"
	"github.com/arcsign/solpipe/metrics"
	"github.com/arcsign/solpipe/pipeline"
	"github.com/arcsign/solpipe/rpcclient"
	"github.com/arcsign/solpipe/signer"
	"github.com/arcsign/solpipe/tpu"

	"github.com/gagliardetto/solana-go"
)

func main() {
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Str("component", "solpipe-demo").Logger()

	params, err := config.Load()
	if err != nil {
		fail(err)
	}

	result, err := run(context.Background(), params)
	if err != nil {
		fail(err)
	}

	if cli.IsInteractive() {
		cli.WriteLog(fmt.Sprintf("confirmed=%v rounds=%d signature=%s", result.Confirmed, result.RoundsCount, result.Signature))
	}

	cli.WriteJSON(runResponse{
		Confirmed:   result.Confirmed,
		Signature:   result.Signature.String(),
		RoundsCount: result.RoundsCount,
		BundleID:    result.BundleID,
		Strategy:    result.Strategy,
	})
}

type runResponse struct {
	Confirmed   bool   `json:"confirmed"`
	Signature   string `json:"signature,omitempty"`
	RoundsCount int    `json:"roundsCount"`
	BundleID    string `json:"bundleId,omitempty"`
	Strategy    string `json:"strategy"`
	Error       string `json:"error,omitempty"`
}

func run(ctx context.Context, params config.ExecuteParams) (*pipeline.Result, error) {
	var keySigner *signer.LocalKeypairSigner
	var err error
	if params.Mnemonic != "" {
		keySigner, err = signer.NewFromMnemonic(params.Mnemonic, params.MnemonicPassphrase, params.HDAccount)
		if err != nil {
			return nil, fmt.Errorf("solpipe-demo: derive signer from mnemonic: %w", err)
		}
	} else {
		keySigner, err = signer.LoadKeypairSigner(params.KeypairPath)
		if err != nil {
			return nil, fmt.Errorf("solpipe-demo: load keypair: %w", err)
		}
	}
	signerSet := signer.NewSet(keySigner.Address(), keySigner)

	rpcClient, err := rpcclient.New(params.RPCEndpoints, rpcclient.NewSimpleHealthTracker())
	if err != nil {
		return nil, fmt.Errorf("solpipe-demo: rpc client: %w", err)
	}

	var wsClient *rpcclient.SubscriptionClient
	if params.WSEndpoint != "" {
		wsClient, err = rpcclient.Dial(ctx, params.WSEndpoint)
		if err != nil {
			log.Warn().Err(err).Msg("websocket dial failed, falling back to poll-only confirmation")
		}
	}

	var tpuClient *tpu.Client
	if params.Strategy == "ultra" {
		tpuClient = tpu.NewClient(tpu.NewScheduleCache(rpcClient), tpu.NewConnPool())
	}

	var jitoClient *jito.Client
	if params.Strategy == "economical" || params.Strategy == "fast" {
		jitoClient = jito.NewClient(params.JitoHTTPTimeout)
	}

	destination, err := solana.PublicKeyFromBase58(params.Destination)
	if err != nil {
		return nil, fmt.Errorf("solpipe-demo: destination: %w", err)
	}

	var tipAccount solana.PublicKey
	if params.TipAccount != "" {
		tipAccount, err = solana.PublicKeyFromBase58(params.TipAccount)
		if err != nil {
			return nil, fmt.Errorf("solpipe-demo: tip account: %w", err)
		}
	}

	g := transferGraph(destination, params.AmountLamports, params.Strategy)

	p := pipeline.Params{
		Graph: g,
		CompileCtx: graph.CompileContext{
			Ctx:           ctx,
			SignerAddress: keySigner.Address(),
			WalletAddress: keySigner.Address(),
		},
		RPC:         rpcClient,
		WS:          wsClient,
		TPU:         tpuClient,
		Jito:        jitoClient,
		Signers:     signerSet,
		Fanout:      params.Fanout,
		JitoRegion:  params.JitoRegion,
		TipLamports: params.TipLamports,
		TipAccount:  tipAccount,
		PriorityFee: feeestimator.PriceConfig{Level: params.PriorityFeeLevel},
		Metrics:     metrics.NewInMemoryRecorder(),
	}

	start := time.Now()
	result, err := pipeline.Execute(ctx, p)
	log.Info().Dur("elapsed", time.Since(start)).Str("strategy", params.Strategy).Msg("execute finished")
	return result, err
}

// transferGraph builds the two-node graph a demo run needs: a native
// transfer plus an execute-config node pinning the requested strategy. The
// transfer node parses its amount as decimal SOL, so amountLamports is
// written out in that unit.
func transferGraph(destination solana.PublicKey, amountLamports uint64, strategy string) *graph.BuilderGraph {
	return &graph.BuilderGraph{
		Nodes: []graph.Node{
			{
				ID:   "transfer",
				Type: graph.NodeTransferNative,
				Data: map[string]string{
					"destination": destination.String(),
					"amount":      fmt.Sprintf("%d.%09d", amountLamports/1_000_000_000, amountLamports%1_000_000_000),
				},
			},
			{
				ID:   "execute",
				Type: graph.NodeExecuteConfig,
				Data: map[string]string{
					"strategy": strategy,
				},
			},
		},
	}
}

func fail(err error) {
	log.Error().Err(err).Msg("solpipe-demo failed")
	cli.WriteJSON(runResponse{Error: err.Error()})
	os.Exit(1)
}
