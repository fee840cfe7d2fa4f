package chainerr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassificationHelpers(t *testing.T) {
	tooLarge := NewTransactionTooLargeError(1300, 1232)
	assert.True(t, IsNonRetryable(tooLarge))
	assert.False(t, IsRetryable(tooLarge))
	assert.Equal(t, 68, tooLarge.ExcessBytes)

	rpcErr := NewRpcError(503, "service unavailable", nil)
	assert.True(t, IsRetryable(rpcErr))

	cancelled := NewCancelledError()
	assert.True(t, IsNonRetryable(cancelled))
}

func TestTpuOutcomeRetryable(t *testing.T) {
	retryable := []TpuOutcome{OutcomeConnectionFailed, OutcomeStreamClosed, OutcomeRateLimited, OutcomeTimeout}
	for _, o := range retryable {
		assert.True(t, o.Retryable(), "%s should be retryable", o)
	}

	terminal := []TpuOutcome{OutcomeDelivered, OutcomeUnreachable, OutcomeZeroRTTRejected, OutcomeNoLeaders}
	for _, o := range terminal {
		assert.False(t, o.Retryable(), "%s should not be retryable", o)
	}
}

func TestTpuSubmissionErrorClassification(t *testing.T) {
	err := NewTpuSubmissionError(OutcomeRateLimited, "leader1", nil)
	require.Equal(t, Retryable, err.Classification)
	assert.Equal(t, "TPU_RATE_LIMITED", err.Code)

	unreachable := NewTpuSubmissionError(OutcomeUnreachable, "leader2", nil)
	require.Equal(t, NonRetryable, unreachable.Classification)
}

func TestRemapWalletMessage(t *testing.T) {
	cases := []struct {
		msg  string
		code WalletRemapCode
		ok   bool
	}{
		{"User rejected the request", WalletUserRejected, true},
		{"Insufficient funds for transfer", WalletInsufficientFunds, true},
		{"Ledger device timeout", WalletHardwareTimeout, true},
		{"some unrelated failure", "", false},
	}

	for _, c := range cases {
		code, ok := RemapWalletMessage(c.msg)
		assert.Equal(t, c.ok, ok, c.msg)
		if c.ok {
			assert.Equal(t, c.code, code, c.msg)
		}
	}
}

func TestBlockhashExpiredErrorCarriesRoundCount(t *testing.T) {
	err := NewBlockhashExpiredError(4, map[string]error{"tpu": NewTpuSubmissionError(OutcomeTimeout, "leaderX", nil)})
	assert.Equal(t, 4, err.RoundsCount)
	assert.Contains(t, err.Error(), "4 round")
}
