// Package chainerr classifies errors raised by the transaction pipeline so
// callers can decide whether to retry, surface to the user, or abort outright.
package chainerr

import (
	"fmt"
	"strings"
	"time"
)

// Classification categorizes an error for retry logic, generalizing the
// three-way split used throughout the submission engine.
type Classification int

const (
	// Retryable errors are transient (RPC timeout, connection reset) and
	// safe to retry without caller intervention.
	Retryable Classification = iota
	// NonRetryable errors are permanent for the given inputs (invalid graph,
	// oversized transaction) and will not succeed on retry.
	NonRetryable
	// UserIntervention errors require the wallet owner to act (rejected a
	// signing prompt, insufficient funds).
	UserIntervention
)

func (c Classification) String() string {
	switch c {
	case Retryable:
		return "retryable"
	case NonRetryable:
		return "non_retryable"
	case UserIntervention:
		return "user_intervention"
	default:
		return "unknown"
	}
}

// PipelineError is the common shape every typed error in this package embeds.
type PipelineError struct {
	Code           string
	Message        string
	Classification Classification
	Cause          error
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PipelineError) Unwrap() error { return e.Cause }

// CompilationError reports a fatal graph-compile failure: the graph was
// invalid, or a node's compile function failed.
type CompilationError struct {
	PipelineError
	NodeID string
}

func NewCompilationError(nodeID, cause string, wrapped error) *CompilationError {
	return &CompilationError{
		PipelineError: PipelineError{
			Code:           "COMPILATION_ERROR",
			Message:        fmt.Sprintf("node %q: %s", nodeID, cause),
			Classification: NonRetryable,
			Cause:          wrapped,
		},
		NodeID: nodeID,
	}
}

// SignerMissingError reports a declared signer absent from the signer set.
type SignerMissingError struct {
	PipelineError
	Account string
}

func NewSignerMissingError(account string) *SignerMissingError {
	return &SignerMissingError{
		PipelineError: PipelineError{
			Code:           "SIGNER_MISSING",
			Message:        fmt.Sprintf("no signer provided for account %s", account),
			Classification: NonRetryable,
		},
		Account: account,
	}
}

// TransactionTooLargeError reports a built transaction exceeding the 1232
// byte wire limit; the caller may split and retry.
type TransactionTooLargeError struct {
	PipelineError
	Size         int
	Limit        int
	ExcessBytes  int
}

func NewTransactionTooLargeError(size, limit int) *TransactionTooLargeError {
	excess := size - limit
	return &TransactionTooLargeError{
		PipelineError: PipelineError{
			Code:           "TRANSACTION_TOO_LARGE",
			Message:        fmt.Sprintf("serialized size %d exceeds limit %d (excess %d bytes)", size, limit, excess),
			Classification: NonRetryable,
		},
		Size:        size,
		Limit:       limit,
		ExcessBytes: excess,
	}
}

// BlockhashExpiredError reports the confirmation loop running out of
// blockhash lifetime; it carries the round count and the last error observed
// per channel so callers can diagnose which path was closest to landing.
type BlockhashExpiredError struct {
	PipelineError
	RoundsCount  int
	LastPerChannel map[string]error
}

func NewBlockhashExpiredError(rounds int, lastPerChannel map[string]error) *BlockhashExpiredError {
	return &BlockhashExpiredError{
		PipelineError: PipelineError{
			Code:           "BLOCKHASH_EXPIRED",
			Message:        fmt.Sprintf("blockhash expired after %d round(s)", rounds),
			Classification: NonRetryable,
		},
		RoundsCount:    rounds,
		LastPerChannel: lastPerChannel,
	}
}

// SimulationFailedError reports a pre-flight simulation that returned an
// on-chain error; program logs are preserved for diagnostics.
type SimulationFailedError struct {
	PipelineError
	Logs []string
}

func NewSimulationFailedError(message string, logs []string, cause error) *SimulationFailedError {
	return &SimulationFailedError{
		PipelineError: PipelineError{
			Code:           "SIMULATION_FAILED",
			Message:        message,
			Classification: NonRetryable,
			Cause:          cause,
		},
		Logs: logs,
	}
}

// TpuOutcome is the closed set of per-leader outcomes the TPU submit client
// classifies a send attempt into.
type TpuOutcome string

const (
	OutcomeDelivered        TpuOutcome = "delivered"
	OutcomeConnectionFailed TpuOutcome = "connection-failed"
	OutcomeStreamClosed     TpuOutcome = "stream-closed"
	OutcomeRateLimited      TpuOutcome = "rate-limited"
	OutcomeTimeout          TpuOutcome = "timeout"
	OutcomeUnreachable      TpuOutcome = "unreachable"
	OutcomeZeroRTTRejected  TpuOutcome = "zero-rtt-rejected"
	OutcomeNoLeaders        TpuOutcome = "no-leaders"
)

// Retryable reports whether this outcome is eligible for in-round retry
// against the same leader.
func (o TpuOutcome) Retryable() bool {
	switch o {
	case OutcomeConnectionFailed, OutcomeStreamClosed, OutcomeRateLimited, OutcomeTimeout:
		return true
	default:
		return false
	}
}

// TpuSubmissionError wraps a terminal per-leader outcome.
type TpuSubmissionError struct {
	PipelineError
	Outcome TpuOutcome
	Leader  string
}

func NewTpuSubmissionError(outcome TpuOutcome, leader string, cause error) *TpuSubmissionError {
	class := Retryable
	if !outcome.Retryable() && outcome != OutcomeNoLeaders {
		class = NonRetryable
	}
	return &TpuSubmissionError{
		PipelineError: PipelineError{
			Code:           "TPU_" + strings.ToUpper(strings.ReplaceAll(string(outcome), "-", "_")),
			Message:        fmt.Sprintf("leader %s: %s", leader, outcome),
			Classification: class,
			Cause:          cause,
		},
		Outcome: outcome,
		Leader:  leader,
	}
}

// RpcError reports a non-success response from an RPC endpoint.
type RpcError struct {
	PipelineError
	HTTPStatus int
	Body       string
}

func NewRpcError(httpStatus int, body string, cause error) *RpcError {
	return &RpcError{
		PipelineError: PipelineError{
			Code:           "RPC_ERROR",
			Message:        fmt.Sprintf("rpc endpoint returned status %d", httpStatus),
			Classification: Retryable,
			Cause:          cause,
		},
		HTTPStatus: httpStatus,
		Body:       body,
	}
}

// CancelledError reports that the caller's abort signal fired.
type CancelledError struct {
	PipelineError
}

func NewCancelledError() *CancelledError {
	return &CancelledError{
		PipelineError: PipelineError{
			Code:           "CANCELLED",
			Message:        "execution cancelled",
			Classification: NonRetryable,
		},
	}
}

// BundleRejectedError reports a terminal non-land status from Jito.
type BundleRejectedError struct {
	PipelineError
	BundleID string
	Status   string
}

func NewBundleRejectedError(bundleID, status string, cause error) *BundleRejectedError {
	return &BundleRejectedError{
		PipelineError: PipelineError{
			Code:           "BUNDLE_REJECTED",
			Message:        fmt.Sprintf("bundle %s terminal status %s", bundleID, status),
			Classification: NonRetryable,
			Cause:          cause,
		},
		BundleID: bundleID,
		Status:   status,
	}
}

// RetryAfter optionally suggests a backoff duration for a retryable error.
// It reports the hint of any error implementing RetryAfterHint; none of this
// package's own error types do, so for them it returns (0, false), meaning
// "no suggestion, use the caller's own backoff policy".
func RetryAfter(err error) (time.Duration, bool) {
	type withRetryAfter interface {
		RetryAfterHint() (time.Duration, bool)
	}
	if rae, ok := err.(withRetryAfter); ok {
		return rae.RetryAfterHint()
	}
	return 0, false
}

// IsRetryable reports whether err is classified as retryable.
func IsRetryable(err error) bool {
	return classificationOf(err) == Retryable
}

// IsNonRetryable reports whether err is classified as non-retryable.
func IsNonRetryable(err error) bool {
	return classificationOf(err) == NonRetryable
}

// IsUserIntervention reports whether err requires user intervention.
func IsUserIntervention(err error) bool {
	return classificationOf(err) == UserIntervention
}

// classificationOf extracts the Classification from any of this package's
// typed errors, defaulting to NonRetryable for unrecognized error values.
func classificationOf(err error) Classification {
	switch e := err.(type) {
	case *CompilationError:
		return e.Classification
	case *SignerMissingError:
		return e.Classification
	case *TransactionTooLargeError:
		return e.Classification
	case *BlockhashExpiredError:
		return e.Classification
	case *SimulationFailedError:
		return e.Classification
	case *TpuSubmissionError:
		return e.Classification
	case *RpcError:
		return e.Classification
	case *CancelledError:
		return e.Classification
	case *BundleRejectedError:
		return e.Classification
	default:
		return NonRetryable
	}
}
