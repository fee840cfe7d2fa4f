package tpu

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/rs/zerolog/log"
)

// Outcome classifies the result of one leader send attempt.
type Outcome string

const (
	OutcomeDelivered        Outcome = "delivered"
	OutcomeConnectionFailed Outcome = "connection-failed"
	OutcomeStreamClosed     Outcome = "stream-closed"
	OutcomeRateLimited      Outcome = "rate-limited"
	OutcomeTimeout          Outcome = "timeout"
	OutcomeUnreachable      Outcome = "unreachable"
	OutcomeZeroRTTRejected  Outcome = "zero-rtt-rejected"
	OutcomeNoLeaders        Outcome = "no-leaders"
)

// retryable reports whether an in-round retry against the same leader is
// worthwhile for this outcome.
func (o Outcome) retryable() bool {
	switch o {
	case OutcomeConnectionFailed, OutcomeStreamClosed, OutcomeRateLimited, OutcomeTimeout:
		return true
	default:
		return false
	}
}

// maxInRoundRetries bounds retries against the same leader within one round.
const maxInRoundRetries = 2

// LeaderResult is one leader's outcome within a submit round.
type LeaderResult struct {
	Leader  LeaderTarget
	Outcome Outcome
	Err     error
	Retries int
}

// SubmitOptions configures one fan-out submit call.
type SubmitOptions struct {
	Fanout   int
	Deadline time.Time
}

// Client fans wire bytes out to the next N distinct upcoming leaders over
// pooled QUIC connections, classifying each leader's outcome.
type Client struct {
	schedule *ScheduleCache
	pool     *ConnPool
}

// NewClient binds a schedule cache and connection pool into a submit client.
func NewClient(schedule *ScheduleCache, pool *ConnPool) *Client {
	return &Client{schedule: schedule, pool: pool}
}

// Submit delivers wireBytes to opts.Fanout distinct leaders starting at
// currentSlot, in parallel, and returns one result per leader attempted. A
// cold or empty leader window reports a single no-leaders result rather than
// an error. The schedule is fetched on first use and re-fetched once
// currentSlot passes the end of the cached epoch.
func (c *Client) Submit(ctx context.Context, currentSlot uint64, wireBytes []byte, opts SubmitOptions) ([]LeaderResult, error) {
	c.schedule.mu.RLock()
	pastRange := c.schedule.slotsPerEpoch > 0 && currentSlot >= c.schedule.firstSlot+c.schedule.slotsPerEpoch
	c.schedule.mu.RUnlock()
	if c.schedule.Cold() || pastRange {
		if err := c.schedule.Refresh(ctx, pastRange); err != nil {
			log.Warn().Err(err).Msg("tpu: schedule refresh failed, proceeding with whatever is resolvable")
		}
	}

	targets := c.schedule.NextLeaders(currentSlot, opts.Fanout)
	if len(targets) == 0 {
		return []LeaderResult{{Outcome: OutcomeNoLeaders}}, nil
	}

	deadline := opts.Deadline
	if deadline.IsZero() {
		deadline = time.Now().Add(2 * time.Second)
	}
	sendCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	type indexed struct {
		idx    int
		result LeaderResult
	}
	out := make(chan indexed, len(targets))

	for i, target := range targets {
		go func(i int, target LeaderTarget) {
			out <- indexed{i, c.sendWithRetry(sendCtx, target, wireBytes)}
		}(i, target)
	}

	results := make([]LeaderResult, len(targets))
	for range targets {
		r := <-out
		results[r.idx] = r.result
		log.Debug().
			Str("leader", r.result.Leader.ShortIdentity()).
			Str("outcome", string(r.result.Outcome)).
			Int("retries", r.result.Retries).
			Msg("tpu: leader send result")
	}

	return results, nil
}

func (c *Client) sendWithRetry(ctx context.Context, target LeaderTarget, wireBytes []byte) LeaderResult {
	var last LeaderResult
	for attempt := 0; attempt <= maxInRoundRetries; attempt++ {
		last = c.sendOnce(ctx, target, wireBytes)
		last.Retries = attempt
		if !last.Outcome.retryable() {
			return last
		}
		select {
		case <-ctx.Done():
			return last
		default:
		}
	}
	return last
}

func (c *Client) sendOnce(ctx context.Context, target LeaderTarget, wireBytes []byte) LeaderResult {
	if ctx.Err() != nil {
		return LeaderResult{Leader: target, Outcome: OutcomeTimeout, Err: ctx.Err()}
	}

	conn, cooledDown, err := c.pool.acquire(ctx, target.Address)
	if cooledDown {
		return LeaderResult{Leader: target, Outcome: OutcomeRateLimited}
	}
	if err != nil {
		return LeaderResult{Leader: target, Outcome: classifyDialError(err), Err: err}
	}
	defer c.pool.release(target.Address)

	stream, err := conn.OpenUniStreamSync(ctx)
	if err != nil {
		c.pool.drop(target.Address)
		outcome := classifyStreamError(err)
		if outcome == OutcomeRateLimited {
			c.pool.markRateLimited(target.Address)
		}
		return LeaderResult{Leader: target, Outcome: outcome, Err: err}
	}

	_, err = stream.Write(wireBytes)
	if err != nil {
		if errors.Is(err, quic.Err0RTTRejected) {
			c.pool.drop(target.Address)
			return LeaderResult{Leader: target, Outcome: OutcomeZeroRTTRejected, Err: err}
		}
		outcome := classifyStreamError(err)
		if outcome == OutcomeRateLimited {
			c.pool.markRateLimited(target.Address)
		}
		return LeaderResult{Leader: target, Outcome: outcome, Err: err}
	}

	if err := stream.Close(); err != nil {
		return LeaderResult{Leader: target, Outcome: classifyStreamError(err), Err: err}
	}

	return LeaderResult{Leader: target, Outcome: OutcomeDelivered}
}

func classifyDialError(err error) Outcome {
	if errors.Is(err, quic.Err0RTTRejected) {
		return OutcomeZeroRTTRejected
	}
	var qErr *quic.TransportError
	if errors.As(err, &qErr) {
		return OutcomeConnectionFailed
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return OutcomeUnreachable
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return OutcomeUnreachable
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return OutcomeTimeout
	}
	return OutcomeConnectionFailed
}

// classifyStreamError distinguishes a peer resetting one stream (treated as
// a rate-limit signal, since repeated stream rejections are how a validator
// signals backpressure) from the peer closing the whole connection
// (stream-closed).
func classifyStreamError(err error) Outcome {
	var streamErr *quic.StreamError
	if errors.As(err, &streamErr) {
		return OutcomeRateLimited
	}
	var appErr *quic.ApplicationError
	if errors.As(err, &appErr) {
		return OutcomeStreamClosed
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return OutcomeTimeout
	}
	return OutcomeStreamClosed
}
