// Package rpcclient provides the Solana JSON-RPC HTTP and WebSocket clients
// the pipeline consumes: blockhash/epoch/slot queries, prioritization
// fee sampling, transaction submission and simulation, and the signature and
// slot subscription feeds the confirmation correlator reads.
package rpcclient

import (
	"sync"
	"time"
)

// EndpointHealth is the health snapshot for one RPC endpoint.
type EndpointHealth struct {
	Endpoint        string
	TotalCalls      int64
	SuccessfulCalls int64
	FailedCalls     int64
	AvgLatencyMs    int64
	LastSuccess     int64
	LastFailure     int64
	CircuitOpen     bool
}

// HealthTracker decides, for a set of candidate RPC endpoints, which are
// currently safe to use (circuit breaker) and which is best (latency/success
// weighted).
type HealthTracker interface {
	RecordSuccess(endpoint string, durationMs int64)
	RecordFailure(endpoint string, err error)
	IsHealthy(endpoint string) bool
	BestEndpoint(endpoints []string) string
	Reset(endpoint string)
}

// SimpleHealthTracker is a circuit breaker keyed by endpoint: three
// consecutive failures opens the circuit, two consecutive successes closes
// it, and an open circuit retries after a fixed window.
type SimpleHealthTracker struct {
	mu     sync.RWMutex
	health map[string]*EndpointHealth

	failureThreshold  int
	successThreshold  int
	circuitOpenWindow time.Duration
}

// NewSimpleHealthTracker builds a tracker with the default thresholds.
func NewSimpleHealthTracker() *SimpleHealthTracker {
	return &SimpleHealthTracker{
		health:            make(map[string]*EndpointHealth),
		failureThreshold:  3,
		successThreshold:  2,
		circuitOpenWindow: 30 * time.Second,
	}
}

func (t *SimpleHealthTracker) RecordSuccess(endpoint string, durationMs int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	h := t.getOrCreate(endpoint)
	h.TotalCalls++
	h.SuccessfulCalls++
	h.LastSuccess = time.Now().Unix()

	if h.AvgLatencyMs == 0 {
		h.AvgLatencyMs = durationMs
	} else {
		h.AvgLatencyMs = (h.AvgLatencyMs*9 + durationMs) / 10
	}

	if h.CircuitOpen {
		consecutiveSuccesses := h.SuccessfulCalls - h.FailedCalls
		if consecutiveSuccesses >= int64(t.successThreshold) {
			h.CircuitOpen = false
		}
	}
}

func (t *SimpleHealthTracker) RecordFailure(endpoint string, _ error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	h := t.getOrCreate(endpoint)
	h.TotalCalls++
	h.FailedCalls++
	h.LastFailure = time.Now().Unix()

	consecutiveFailures := h.FailedCalls - h.SuccessfulCalls
	if consecutiveFailures >= int64(t.failureThreshold) {
		h.CircuitOpen = true
	}
}

func (t *SimpleHealthTracker) IsHealthy(endpoint string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	h, ok := t.health[endpoint]
	if !ok {
		return true
	}
	if h.CircuitOpen {
		if time.Now().Unix()-h.LastFailure < int64(t.circuitOpenWindow.Seconds()) {
			return false
		}
	}
	return true
}

func (t *SimpleHealthTracker) BestEndpoint(endpoints []string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	best := ""
	bestScore := -1.0
	for _, endpoint := range endpoints {
		if !t.isHealthyLocked(endpoint) {
			continue
		}
		h, ok := t.health[endpoint]
		if !ok {
			return endpoint
		}
		successRate := float64(h.SuccessfulCalls) / float64(h.TotalCalls)
		latencyFactor := 1.0 / (float64(h.AvgLatencyMs) + 1.0)
		score := successRate*0.7 + latencyFactor*0.3
		if score > bestScore {
			bestScore = score
			best = endpoint
		}
	}
	if best == "" && len(endpoints) > 0 {
		return endpoints[0]
	}
	return best
}

func (t *SimpleHealthTracker) Reset(endpoint string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.health, endpoint)
}

func (t *SimpleHealthTracker) isHealthyLocked(endpoint string) bool {
	h, ok := t.health[endpoint]
	if !ok {
		return true
	}
	if h.CircuitOpen && time.Now().Unix()-h.LastFailure < int64(t.circuitOpenWindow.Seconds()) {
		return false
	}
	return true
}

func (t *SimpleHealthTracker) getOrCreate(endpoint string) *EndpointHealth {
	h, ok := t.health[endpoint]
	if !ok {
		h = &EndpointHealth{Endpoint: endpoint}
		t.health[endpoint] = h
	}
	return h
}
