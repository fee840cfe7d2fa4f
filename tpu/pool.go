package tpu

import (
	"context"
	"crypto/tls"
	"sync"
	"time"

	"github.com/quic-go/quic-go"
)

// maxIdleAge is the longest a pooled connection is reused before a fresh
// handshake is forced.
const maxIdleAge = 30 * time.Second

// maxStreamsPerConn bounds per-connection concurrent send streams to avoid
// tripping validator rate limits.
const maxStreamsPerConn = 4

// cooldownFloor and cooldownCeiling bound the rate-limit back-off, doubling
// from floor to ceiling on repeated rate-limit signals.
const (
	cooldownFloor   = time.Second
	cooldownCeiling = 16 * time.Second
)

// pooledConn tracks one QUIC connection to a validator's TPU-QUIC endpoint
// plus its rate-limit cooldown state.
type pooledConn struct {
	conn       quic.Connection
	lastUsed   time.Time
	inFlight   int
	cooldownAt time.Time
	cooldownNS time.Duration
}

// ConnPool holds one QUIC connection per leader address, handling dial,
// reuse of a pooled connection inside the idle window, and per-leader
// rate-limit cooldown tracking.
type ConnPool struct {
	mu    sync.Mutex
	conns map[string]*pooledConn
}

// NewConnPool builds an empty pool.
func NewConnPool() *ConnPool {
	return &ConnPool{conns: make(map[string]*pooledConn)}
}

// acquire returns a live connection to addr, dialing fresh if none is pooled
// or the pooled one has aged out. The TLS config sets no client session
// cache, so every fresh dial is a full 1-RTT handshake and 0-RTT resumption
// does not occur. It also reports whether the caller
// should honor a rate-limit cooldown instead of dialing at all.
func (p *ConnPool) acquire(ctx context.Context, addr string) (quic.Connection, bool, error) {
	p.mu.Lock()
	pc, ok := p.conns[addr]
	if ok && time.Now().Before(pc.cooldownAt) {
		p.mu.Unlock()
		return nil, true, nil
	}
	if ok && time.Since(pc.lastUsed) < maxIdleAge && pc.inFlight < maxStreamsPerConn {
		pc.inFlight++
		pc.lastUsed = time.Now()
		p.mu.Unlock()
		return pc.conn, false, nil
	}
	p.mu.Unlock()

	tlsConf := &tls.Config{InsecureSkipVerify: true, NextProtos: []string{"solana-tpu"}}
	conn, err := quic.DialAddrEarly(ctx, addr, tlsConf, &quic.Config{MaxIdleTimeout: maxIdleAge})
	if err != nil {
		return nil, false, err
	}

	p.mu.Lock()
	p.conns[addr] = &pooledConn{conn: conn, lastUsed: time.Now(), inFlight: 1}
	p.mu.Unlock()

	return conn, false, nil
}

func (p *ConnPool) release(addr string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pc, ok := p.conns[addr]; ok && pc.inFlight > 0 {
		pc.inFlight--
	}
}

// markRateLimited cools the connection down for a back-off interval that
// doubles on repeat, capped at cooldownCeiling.
func (p *ConnPool) markRateLimited(addr string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pc, ok := p.conns[addr]
	if !ok {
		pc = &pooledConn{}
		p.conns[addr] = pc
	}
	if pc.cooldownNS == 0 {
		pc.cooldownNS = cooldownFloor
	} else {
		pc.cooldownNS *= 2
		if pc.cooldownNS > cooldownCeiling {
			pc.cooldownNS = cooldownCeiling
		}
	}
	pc.cooldownAt = time.Now().Add(pc.cooldownNS)
}

// drop discards a pooled connection after a fatal send failure so the next
// acquire dials fresh.
func (p *ConnPool) drop(addr string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pc, ok := p.conns[addr]; ok && pc.conn != nil {
		pc.conn.CloseWithError(0, "tpu: dropping stale connection")
		delete(p.conns, addr)
	}
}

// Close tears down every pooled connection.
func (p *ConnPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for addr, pc := range p.conns {
		if pc.conn != nil {
			pc.conn.CloseWithError(0, "tpu: pool closed")
		}
		delete(p.conns, addr)
	}
}
