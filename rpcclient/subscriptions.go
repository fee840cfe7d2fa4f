package rpcclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
)

// SubscriptionClient wraps a Solana WebSocket RPC connection with automatic
// reconnection over the gagliardetto/solana-go/rpc/ws transport.
type SubscriptionClient struct {
	url string

	mu     sync.RWMutex
	conn   *ws.Client
	closed bool
}

// Dial opens the WebSocket connection and starts out ready for subscriptions.
func Dial(ctx context.Context, url string) (*SubscriptionClient, error) {
	conn, err := ws.Connect(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("rpcclient: dial %s: %w", url, err)
	}
	return &SubscriptionClient{url: url, conn: conn}, nil
}

// SubscribeSignature subscribes to commitment notifications for a single
// signature. The returned channel is closed when the subscription ends
// (confirmation received, context cancelled, or the connection is closed).
func (s *SubscriptionClient) SubscribeSignature(ctx context.Context, sig solana.Signature) (<-chan *ws.SignatureResult, error) {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil {
		return nil, fmt.Errorf("rpcclient: subscription client not connected")
	}

	sub, err := conn.SignatureSubscribe(sig, rpc.CommitmentConfirmed)
	if err != nil {
		return nil, fmt.Errorf("rpcclient: signature subscribe: %w", err)
	}

	out := make(chan *ws.SignatureResult, 1)
	go func() {
		defer close(out)
		defer sub.Unsubscribe()
		result, err := sub.Recv()
		if err != nil {
			return
		}
		select {
		case out <- result:
		case <-ctx.Done():
		}
	}()
	return out, nil
}

// SubscribeSlot subscribes to the slot notification feed the resubmission
// loop uses as its round-boundary clock.
func (s *SubscriptionClient) SubscribeSlot(ctx context.Context) (<-chan *ws.SlotResult, error) {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil {
		return nil, fmt.Errorf("rpcclient: subscription client not connected")
	}

	sub, err := conn.SlotSubscribe()
	if err != nil {
		return nil, fmt.Errorf("rpcclient: slot subscribe: %w", err)
	}

	out := make(chan *ws.SlotResult, 16)
	go func() {
		defer close(out)
		defer sub.Unsubscribe()
		for {
			result, err := sub.Recv()
			if err != nil {
				return
			}
			select {
			case out <- result:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Reconnect tears down and re-dials the connection with exponential backoff,
// for use by a caller that has observed the connection die mid-subscription.
func (s *SubscriptionClient) Reconnect(ctx context.Context) error {
	operation := func() (*ws.Client, error) {
		return ws.Connect(ctx, s.url)
	}

	conn, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(60*time.Second),
	)
	if err != nil {
		return fmt.Errorf("rpcclient: reconnect %s: %w", s.url, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		conn.Close()
		return fmt.Errorf("rpcclient: subscription client closed during reconnect")
	}
	if s.conn != nil {
		s.conn.Close()
	}
	s.conn = conn
	return nil
}

// Close shuts down the underlying WebSocket connection.
func (s *SubscriptionClient) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.conn != nil {
		s.conn.Close()
	}
	return nil
}
