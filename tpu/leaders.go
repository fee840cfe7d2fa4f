// Package tpu delivers signed wire bytes directly to validator QUIC TPU
// endpoints for one or more upcoming leaders.
package tpu

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/arcsign/solpipe/rpcclient"
)

// ScheduleCache resolves slot numbers to validator TPU-QUIC addresses. It is
// refreshed lazily by Client.Submit: on first use, and again once the
// requested slot lies past the end of the cached epoch.
type ScheduleCache struct {
	rpc *rpcclient.Client

	mu            sync.RWMutex
	epoch         uint64
	slotsPerEpoch uint64
	firstSlot     uint64
	leaderBySlot  map[uint64]solana.PublicKey
	addrByLeader  map[solana.PublicKey]string
	refreshedAt   time.Time
}

// NewScheduleCache builds an empty, cold cache bound to an RPC client.
func NewScheduleCache(rpc *rpcclient.Client) *ScheduleCache {
	return &ScheduleCache{rpc: rpc}
}

// LeaderAddress returns the TPU-QUIC address for the leader of a slot, if the
// cache currently has an answer. A cold or stale cache returns false rather
// than blocking; callers should call Refresh first.
func (c *ScheduleCache) LeaderAddress(slot uint64) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	leader, ok := c.leaderBySlot[slot]
	if !ok {
		return "", false
	}
	addr, ok := c.addrByLeader[leader]
	return addr, ok
}

// leaderIdentity returns the validator identity scheduled for a slot.
func (c *ScheduleCache) leaderIdentity(slot uint64) (solana.PublicKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	identity, ok := c.leaderBySlot[slot]
	return identity, ok
}

// Cold reports whether the cache has never been populated.
func (c *ScheduleCache) Cold() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshedAt.IsZero()
}

// Refresh fetches the current epoch's leader schedule and the cluster's
// gossip-advertised TPU-QUIC addresses. It is safe to call repeatedly; a
// refresh less than an hour old is a no-op unless force is set.
func (c *ScheduleCache) Refresh(ctx context.Context, force bool) error {
	c.mu.RLock()
	stale := force || time.Since(c.refreshedAt) > time.Hour
	c.mu.RUnlock()
	if !stale {
		return nil
	}

	epochInfo, err := c.rpc.GetEpochInfo(ctx)
	if err != nil {
		return fmt.Errorf("tpu: fetch epoch info: %w", err)
	}

	schedule, err := c.rpc.GetLeaderSchedule(ctx)
	if err != nil {
		return fmt.Errorf("tpu: fetch leader schedule: %w", err)
	}

	nodes, err := c.rpc.GetClusterNodes(ctx)
	if err != nil {
		return fmt.Errorf("tpu: fetch cluster nodes: %w", err)
	}

	firstSlot := epochInfo.AbsoluteSlot - epochInfo.SlotIndex

	addrByLeader := make(map[solana.PublicKey]string, len(nodes))
	for _, n := range nodes {
		if n == nil || n.TPUQUIC == nil {
			continue
		}
		addrByLeader[n.Pubkey] = *n.TPUQUIC
	}

	leaderBySlot := make(map[uint64]solana.PublicKey, len(schedule)*4)
	for identityStr, relativeSlots := range schedule {
		identity, parseErr := solana.PublicKeyFromBase58(identityStr)
		if parseErr != nil {
			continue
		}
		for _, rel := range relativeSlots {
			leaderBySlot[firstSlot+rel] = identity
		}
	}

	c.mu.Lock()
	c.epoch = epochInfo.Epoch
	c.slotsPerEpoch = epochInfo.SlotsInEpoch
	c.firstSlot = firstSlot
	c.leaderBySlot = leaderBySlot
	c.addrByLeader = addrByLeader
	c.refreshedAt = time.Now()
	c.mu.Unlock()

	return nil
}

// NextLeaders walks slots S, S+1, ... accumulating up to fanout distinct
// validator addresses, skipping repeats of the current leader across
// consecutive slots and slots with no resolvable address. It stops after
// scanning a generous lookahead window so a sparse cache cannot spin forever.
func (c *ScheduleCache) NextLeaders(startSlot uint64, fanout int) []LeaderTarget {
	const lookaheadWindow = 64

	seen := map[string]bool{}
	var out []LeaderTarget
	for slot := startSlot; slot < startSlot+lookaheadWindow && len(out) < fanout; slot++ {
		addr, ok := c.LeaderAddress(slot)
		if !ok || addr == "" || seen[addr] {
			continue
		}
		seen[addr] = true
		identity, _ := c.leaderIdentity(slot)
		out = append(out, LeaderTarget{Slot: slot, Address: addr, Identity: identity})
	}
	return out
}

// LeaderTarget pairs a resolved TPU-QUIC address with the slot it was
// resolved for and the validator identity that schedules it, used for
// logging and outcome attribution.
type LeaderTarget struct {
	Slot     uint64
	Address  string
	Identity solana.PublicKey
}

// ShortIdentity renders the leader's base58 identity truncated for
// human-readable round logs, the way a full 44-character pubkey would
// otherwise crowd out everything else on the line.
func (t LeaderTarget) ShortIdentity() string {
	s := t.Identity.String()
	if len(s) <= 12 {
		return s
	}
	return s[:8] + "..."
}
