package rpcclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Client fans a set of Solana JSON-RPC endpoints out behind a round-robin
// plus circuit-breaker selector, built on the gagliardetto/solana-go wire
// layer instead of reimplementing JSON-RPC framing.
type Client struct {
	endpoints []string
	conns     map[string]*rpc.Client
	health    HealthTracker

	mu      sync.Mutex
	nextIdx int
}

// New builds a Client from one or more HTTP(S) RPC endpoint URLs.
func New(endpoints []string, health HealthTracker) (*Client, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("rpcclient: at least one endpoint is required")
	}
	if health == nil {
		health = NewSimpleHealthTracker()
	}

	conns := make(map[string]*rpc.Client, len(endpoints))
	for _, ep := range endpoints {
		conns[ep] = rpc.New(ep)
	}

	return &Client{endpoints: endpoints, conns: conns, health: health}, nil
}

func (c *Client) nextHealthyEndpoint(attempted map[string]bool) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := 0; i < len(c.endpoints); i++ {
		idx := (c.nextIdx + i) % len(c.endpoints)
		ep := c.endpoints[idx]
		if attempted[ep] {
			continue
		}
		if c.health.IsHealthy(ep) {
			c.nextIdx = (idx + 1) % len(c.endpoints)
			return ep
		}
	}
	for _, ep := range c.endpoints {
		if !attempted[ep] {
			return ep
		}
	}
	return ""
}

// callWithFailover tries every endpoint in health-aware round-robin order,
// recording success/failure for circuit-breaking, until one succeeds or all
// are exhausted.
func callWithFailover[T any](ctx context.Context, c *Client, fn func(*rpc.Client) (T, error)) (T, error) {
	var zero T
	attempted := make(map[string]bool, len(c.endpoints))
	var lastErr error

	for len(attempted) < len(c.endpoints) {
		ep := c.nextHealthyEndpoint(attempted)
		if ep == "" {
			break
		}
		attempted[ep] = true

		start := time.Now()
		result, err := fn(c.conns[ep])
		if err == nil {
			c.health.RecordSuccess(ep, time.Since(start).Milliseconds())
			return result, nil
		}
		c.health.RecordFailure(ep, err)
		lastErr = err
	}

	return zero, fmt.Errorf("rpcclient: all endpoints failed: %w", lastErr)
}

func (c *Client) GetLatestBlockhash(ctx context.Context) (*rpc.GetLatestBlockhashResult, error) {
	return callWithFailover(ctx, c, func(rc *rpc.Client) (*rpc.GetLatestBlockhashResult, error) {
		return rc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	})
}

// GetRecentPrioritizationFees returns the raw per-slot fee samples for the
// given accounts, newest-first as the RPC returns them; callers sort before
// computing a percentile.
func (c *Client) GetRecentPrioritizationFees(ctx context.Context, accounts []solana.PublicKey) ([]uint64, error) {
	result, err := callWithFailover(ctx, c, func(rc *rpc.Client) ([]rpc.RecentPrioritizationFee, error) {
		return rc.GetRecentPrioritizationFees(ctx, accounts)
	})
	if err != nil {
		return nil, err
	}
	fees := make([]uint64, len(result))
	for i, f := range result {
		fees[i] = f.PrioritizationFee
	}
	return fees, nil
}

func (c *Client) GetSignatureStatuses(ctx context.Context, searchHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	return callWithFailover(ctx, c, func(rc *rpc.Client) (*rpc.GetSignatureStatusesResult, error) {
		return rc.GetSignatureStatuses(ctx, searchHistory, sigs...)
	})
}

// SendTransaction submits with skipPreflight=true: the resubmission loop
// already simulated once during compute-budget resolution, and a second
// preflight simulation per round would just add latency.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	return callWithFailover(ctx, c, func(rc *rpc.Client) (solana.Signature, error) {
		return rc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{SkipPreflight: true})
	})
}

func (c *Client) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*rpc.SimulateTransactionResponse, error) {
	return callWithFailover(ctx, c, func(rc *rpc.Client) (*rpc.SimulateTransactionResponse, error) {
		return rc.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{SigVerify: false})
	})
}

func (c *Client) GetEpochInfo(ctx context.Context) (*rpc.GetEpochInfoResult, error) {
	return callWithFailover(ctx, c, func(rc *rpc.Client) (*rpc.GetEpochInfoResult, error) {
		return rc.GetEpochInfo(ctx, rpc.CommitmentConfirmed)
	})
}

func (c *Client) GetSlot(ctx context.Context) (uint64, error) {
	return callWithFailover(ctx, c, func(rc *rpc.Client) (uint64, error) {
		return rc.GetSlot(ctx, rpc.CommitmentConfirmed)
	})
}

func (c *Client) GetClusterNodes(ctx context.Context) ([]*rpc.GetClusterNodesResult, error) {
	return callWithFailover(ctx, c, func(rc *rpc.Client) ([]*rpc.GetClusterNodesResult, error) {
		return rc.GetClusterNodes(ctx)
	})
}

func (c *Client) GetLeaderSchedule(ctx context.Context) (rpc.GetLeaderScheduleResult, error) {
	return callWithFailover(ctx, c, func(rc *rpc.Client) (rpc.GetLeaderScheduleResult, error) {
		return rc.GetLeaderSchedule(ctx)
	})
}

func (c *Client) GetAddressLookupTable(ctx context.Context, table solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	return callWithFailover(ctx, c, func(rc *rpc.Client) (*rpc.GetAccountInfoResult, error) {
		return rc.GetAccountInfoWithOpts(ctx, table, &rpc.GetAccountInfoOpts{Encoding: solana.EncodingBase64})
	})
}

func (c *Client) GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	return callWithFailover(ctx, c, func(rc *rpc.Client) (*rpc.GetAccountInfoResult, error) {
		return rc.GetAccountInfoWithOpts(ctx, account, &rpc.GetAccountInfoOpts{Encoding: solana.EncodingBase64})
	})
}

// Close releases all underlying connections.
func (c *Client) Close() error {
	var firstErr error
	for _, rc := range c.conns {
		if err := rc.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
