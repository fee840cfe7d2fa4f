package submission

import (
	"context"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"

	"github.com/arcsign/solpipe/chainerr"
	"github.com/arcsign/solpipe/rpcclient"
	"github.com/arcsign/solpipe/tpu"
	"github.com/arcsign/solpipe/txbuilder"
)

// slotBoundary is the fallback wait used when no slot subscription is
// active; it approximates Solana's ~400ms slot time.
const slotBoundary = 400 * time.Millisecond

// Config selects which channels a round posts to, mirroring the strategy
// multiplexer's per-strategy behavior: standard posts to RPC only,
// economical is handled entirely by the jito package, fast races a Jito
// bundle against an RPC-only engine, and ultra adds TPU fan-out on top of
// RPC.
type Config struct {
	Fanout      int
	UseTPU      bool
	RPCEndpoint bool
}

// Engine drives the continuous resubmission loop and implements
// txbuilder.Submitter.
type Engine struct {
	rpc        *rpcclient.Client
	ws         *rpcclient.SubscriptionClient // nil disables slot/signature subscriptions
	tpuClient  *tpu.Client
	correlator *Correlator
	cfg        Config
}

var _ txbuilder.Submitter = (*Engine)(nil)

// NewEngine wires the RPC client, optional WebSocket subscription client,
// and TPU submit client into a resubmission engine.
func NewEngine(rpc *rpcclient.Client, ws *rpcclient.SubscriptionClient, tpuClient *tpu.Client, cfg Config) *Engine {
	return &Engine{
		rpc:        rpc,
		ws:         ws,
		tpuClient:  tpuClient,
		correlator: NewCorrelator(rpc, ws),
		cfg:        cfg,
	}
}

// Execute drives submission rounds until confirmed or the blockhash expires.
func (e *Engine) Execute(ctx context.Context, wireBytes []byte, signature solana.Signature, lastValidBlockHeight uint64) (txbuilder.SubmissionOutcome, error) {
	roundCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	confirmCh := make(chan *ConfirmationResult, 1)
	go func() {
		result, err := e.correlator.Await(roundCtx, signature)
		if err == nil {
			select {
			case confirmCh <- result:
			case <-roundCtx.Done():
			}
		}
	}()

	slotCh := e.slotTicks(roundCtx)

	round := 0
	lastPerChannel := map[string]error{}

	for {
		round++

		slot, err := e.rpc.GetSlot(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("submission: slot lookup failed, assuming not yet expired")
		} else if slot > lastValidBlockHeight {
			return txbuilder.SubmissionOutcome{}, chainerr.NewBlockhashExpiredError(round, lastPerChannel)
		}

		e.submitRound(roundCtx, slot, wireBytes, lastPerChannel)

		select {
		case result := <-confirmCh:
			if result.Err != nil {
				return txbuilder.SubmissionOutcome{}, result.Err
			}
			return txbuilder.SubmissionOutcome{Confirmed: true, Signature: signature, RoundsCount: round}, nil
		case <-slotCh:
			continue
		case <-ctx.Done():
			return txbuilder.SubmissionOutcome{}, chainerr.NewCancelledError()
		}
	}
}

// submitRound fires the TPU fan-out and/or the RPC post for one round in
// parallel and returns once both sends have returned; the caller's select
// against the slot/confirmation channels then paces the next round.
func (e *Engine) submitRound(ctx context.Context, slot uint64, wireBytes []byte, lastPerChannel map[string]error) {
	var wg sync.WaitGroup
	var mu sync.Mutex

	if e.cfg.UseTPU && e.tpuClient != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results, err := e.tpuClient.Submit(ctx, slot, wireBytes, tpu.SubmitOptions{Fanout: e.cfg.Fanout})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				lastPerChannel["tpu"] = err
				return
			}
			for _, r := range results {
				if r.Outcome != tpu.OutcomeDelivered {
					lastPerChannel["tpu"] = chainerr.NewTpuSubmissionError(chainerr.TpuOutcome(r.Outcome), r.Leader.Address, r.Err)
				}
			}
		}()
	}

	if e.cfg.RPCEndpoint {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx, err := solana.TransactionFromBytes(wireBytes)
			if err != nil {
				mu.Lock()
				lastPerChannel["rpc"] = err
				mu.Unlock()
				return
			}
			if _, err := e.rpc.SendTransaction(ctx, tx); err != nil {
				mu.Lock()
				lastPerChannel["rpc"] = err
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
}

// slotTicks returns a channel that fires at the next slot boundary, reading
// from the slot subscription when available and falling back to a fixed
// interval timer otherwise.
func (e *Engine) slotTicks(ctx context.Context) <-chan struct{} {
	out := make(chan struct{})

	if e.ws != nil {
		slots, err := e.ws.SubscribeSlot(ctx)
		if err == nil {
			go func() {
				for range slots {
					select {
					case out <- struct{}{}:
					case <-ctx.Done():
						return
					}
				}
			}()
			return out
		}
		log.Warn().Err(err).Msg("submission: slot subscribe failed, falling back to fixed interval")
	}

	go func() {
		ticker := time.NewTicker(slotBoundary)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				select {
				case out <- struct{}{}:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
