package tpu

import (
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColdCacheReportsCold(t *testing.T) {
	c := NewScheduleCache(nil)
	assert.True(t, c.Cold())
}

func TestLeaderAddressMissesOnUnknownSlot(t *testing.T) {
	c := NewScheduleCache(nil)
	_, ok := c.LeaderAddress(12345)
	assert.False(t, ok)
}

func TestNextLeadersDedupesConsecutiveSameLeader(t *testing.T) {
	leaderA := solana.NewWallet().PublicKey()
	leaderB := solana.NewWallet().PublicKey()

	c := &ScheduleCache{
		leaderBySlot: map[uint64]solana.PublicKey{
			100: leaderA,
			101: leaderA,
			102: leaderB,
			103: leaderB,
		},
		addrByLeader: map[solana.PublicKey]string{
			leaderA: "10.0.0.1:8009",
			leaderB: "10.0.0.2:8009",
		},
		refreshedAt: time.Now(),
	}

	targets := c.NextLeaders(100, 2)
	require.Len(t, targets, 2)
	assert.Equal(t, "10.0.0.1:8009", targets[0].Address)
	assert.Equal(t, "10.0.0.2:8009", targets[1].Address)
	assert.True(t, targets[0].Identity.Equals(leaderA))
	assert.True(t, targets[1].Identity.Equals(leaderB))
}

func TestShortIdentityTruncatesLongBase58(t *testing.T) {
	target := LeaderTarget{Identity: solana.NewWallet().PublicKey()}
	short := target.ShortIdentity()
	assert.Len(t, short, 11)
	assert.True(t, len(short) < len(target.Identity.String()))
}

func TestNextLeadersStopsAtFanoutEvenWithMoreAvailable(t *testing.T) {
	leaders := make([]solana.PublicKey, 5)
	leaderBySlot := map[uint64]solana.PublicKey{}
	addrByLeader := map[solana.PublicKey]string{}
	for i := range leaders {
		leaders[i] = solana.NewWallet().PublicKey()
		leaderBySlot[uint64(i)] = leaders[i]
		addrByLeader[leaders[i]] = "addr"
	}

	c := &ScheduleCache{leaderBySlot: leaderBySlot, addrByLeader: addrByLeader, refreshedAt: time.Now()}

	targets := c.NextLeaders(0, 3)
	assert.Len(t, targets, 3)
}

func TestNextLeadersSkipsSlotsWithNoResolvedAddress(t *testing.T) {
	leader := solana.NewWallet().PublicKey()
	c := &ScheduleCache{
		leaderBySlot: map[uint64]solana.PublicKey{5: leader},
		addrByLeader: map[solana.PublicKey]string{},
		refreshedAt:  time.Now(),
	}

	targets := c.NextLeaders(0, 1)
	assert.Empty(t, targets)
}
