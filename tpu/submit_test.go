package tpu

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcomeRetryability(t *testing.T) {
	assert.True(t, OutcomeConnectionFailed.retryable())
	assert.True(t, OutcomeStreamClosed.retryable())
	assert.True(t, OutcomeRateLimited.retryable())
	assert.True(t, OutcomeTimeout.retryable())

	assert.False(t, OutcomeDelivered.retryable())
	assert.False(t, OutcomeUnreachable.retryable())
	assert.False(t, OutcomeZeroRTTRejected.retryable())
	assert.False(t, OutcomeNoLeaders.retryable())
}

// TestNoLeadersResultWhenScheduleIsEmpty marks the cache as already
// refreshed (so Submit does not attempt a live RPC call against a nil
// client) but with no resolvable leaders, and checks the no-leaders outcome.
func TestNoLeadersResultWhenScheduleIsEmpty(t *testing.T) {
	schedule := NewScheduleCache(nil)
	schedule.refreshedAt = time.Now()
	pool := NewConnPool()
	client := NewClient(schedule, pool)

	results, err := client.Submit(context.Background(), 0, []byte("wire"), SubmitOptions{Fanout: 2})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeNoLeaders, results[0].Outcome)
}
