package rpcclient

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthTrackerOpensCircuitAfterConsecutiveFailures(t *testing.T) {
	tr := NewSimpleHealthTracker()
	ep := "https://rpc.example.test"

	require.True(t, tr.IsHealthy(ep))

	tr.RecordFailure(ep, errors.New("timeout"))
	tr.RecordFailure(ep, errors.New("timeout"))
	assert.True(t, tr.IsHealthy(ep), "circuit should still be closed below threshold")

	tr.RecordFailure(ep, errors.New("timeout"))
	assert.False(t, tr.IsHealthy(ep), "circuit should open at the failure threshold")
}

func TestHealthTrackerAllowsRetryAfterCircuitWindow(t *testing.T) {
	tr := NewSimpleHealthTracker()
	ep := "https://rpc.example.test"

	tr.RecordFailure(ep, errors.New("x"))
	tr.RecordFailure(ep, errors.New("x"))
	tr.RecordFailure(ep, errors.New("x"))
	require.False(t, tr.IsHealthy(ep))

	tr.circuitOpenWindow = 0 // force the retry window open for the test
	assert.True(t, tr.IsHealthy(ep))
}

func TestBestEndpointPrefersUnknownOverUnhealthy(t *testing.T) {
	tr := NewSimpleHealthTracker()
	bad, fresh := "https://bad.example.test", "https://fresh.example.test"

	tr.RecordFailure(bad, errors.New("x"))
	tr.RecordFailure(bad, errors.New("x"))
	tr.RecordFailure(bad, errors.New("x"))

	assert.Equal(t, fresh, tr.BestEndpoint([]string{bad, fresh}))
}

func TestResetClearsHealthHistory(t *testing.T) {
	tr := NewSimpleHealthTracker()
	ep := "https://rpc.example.test"

	tr.RecordFailure(ep, errors.New("x"))
	tr.RecordFailure(ep, errors.New("x"))
	tr.RecordFailure(ep, errors.New("x"))
	require.False(t, tr.IsHealthy(ep))

	tr.Reset(ep)
	assert.True(t, tr.IsHealthy(ep))
}
