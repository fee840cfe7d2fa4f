// Package submission drives the continuous resubmission loop and
// confirmation correlator: it keeps resending a signed transaction
// across slot boundaries until a confirmation arrives on any channel or the
// blockhash expires.
package submission

import (
	"context"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog/log"

	"github.com/arcsign/solpipe/rpcclient"
)

// pollInterval is the fallback getSignatureStatuses poll cadence used to
// fill gaps when no subscription is active or the subscription connection
// has dropped.
const pollInterval = 2 * time.Second

// Correlator resolves a signature's confirmation from whichever channel
// reports it first: a WebSocket subscription (preferred, earliest signal) or
// a periodic getSignatureStatuses poll.
type Correlator struct {
	rpc *rpcclient.Client
	ws  *rpcclient.SubscriptionClient // nil if no WebSocket endpoint configured
}

// NewCorrelator builds a correlator. ws may be nil; the correlator falls
// back to polling only.
func NewCorrelator(rpc *rpcclient.Client, ws *rpcclient.SubscriptionClient) *Correlator {
	return &Correlator{rpc: rpc, ws: ws}
}

// ConfirmationResult reports that a signature was observed as confirmed (or
// failed on-chain).
type ConfirmationResult struct {
	Signature solana.Signature
	Err       error // non-nil if the transaction landed but failed
}

// Await blocks until the signature is confirmed or the context is done,
// whichever comes first; any deadline comes from ctx. It races a subscription feed
// (if available) against a poll loop and returns on first arrival.
func (c *Correlator) Await(ctx context.Context, sig solana.Signature) (*ConfirmationResult, error) {
	out := make(chan *ConfirmationResult, 2)

	var wg sync.WaitGroup

	if c.ws != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.watchSubscription(ctx, sig, out)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		c.watchPoll(ctx, sig, out)
	}()

	select {
	case result := <-out:
		return result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Correlator) watchSubscription(ctx context.Context, sig solana.Signature, out chan<- *ConfirmationResult) {
	ch, err := c.ws.SubscribeSignature(ctx, sig)
	if err != nil {
		log.Warn().Err(err).Str("signature", sig.String()).Msg("submission: signature subscribe failed, relying on poll")
		return
	}

	select {
	case result, ok := <-ch:
		if !ok || result == nil {
			return
		}
		var txErr error
		if result.Value.Err != nil {
			txErr = &onChainError{result.Value.Err}
		}
		select {
		case out <- &ConfirmationResult{Signature: sig, Err: txErr}:
		case <-ctx.Done():
		}
	case <-ctx.Done():
	}
}

func (c *Correlator) watchPoll(ctx context.Context, sig solana.Signature, out chan<- *ConfirmationResult) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			resp, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
			if err != nil {
				continue
			}
			if len(resp.Value) == 0 || resp.Value[0] == nil {
				continue
			}
			status := resp.Value[0]
			if status.ConfirmationStatus != rpc.ConfirmationStatusConfirmed &&
				status.ConfirmationStatus != rpc.ConfirmationStatusFinalized {
				continue
			}
			var txErr error
			if status.Err != nil {
				txErr = &onChainError{status.Err}
			}
			select {
			case out <- &ConfirmationResult{Signature: sig, Err: txErr}:
			case <-ctx.Done():
			}
			return
		}
	}
}

// onChainError wraps an RPC-reported transaction error value so it satisfies
// the error interface without losing the original structured value.
type onChainError struct {
	value interface{}
}

func (e *onChainError) Error() string {
	return "transaction landed with an on-chain error"
}

// Value exposes the raw RPC error value for callers that want to inspect it.
func (e *onChainError) Value() interface{} { return e.value }
