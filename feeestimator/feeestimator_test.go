package feeestimator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMicroLamportsForLevel(t *testing.T) {
	assert.EqualValues(t, 0, MicroLamportsForLevel(LevelNone))
	assert.EqualValues(t, 1_000, MicroLamportsForLevel(LevelLow))
	assert.EqualValues(t, 5_000_000, MicroLamportsForLevel(LevelMax))
	assert.EqualValues(t, 10_000, MicroLamportsForLevel("unknown-level"))
}

func TestResolveUnitPriceExactWins(t *testing.T) {
	exact := uint64(42)
	pctl := 90.0
	price := ResolveUnitPrice(PriceConfig{ExactMicroLamports: &exact, Percentile: &pctl, RecentFees: []uint64{1, 2, 3}})
	assert.EqualValues(t, 42, price)
}

func TestResolveUnitPricePercentileClampsToTableBounds(t *testing.T) {
	pctl := 100.0
	price := ResolveUnitPrice(PriceConfig{Percentile: &pctl, RecentFees: []uint64{1, 2, 3, 10_000_000}})
	assert.EqualValues(t, levelMicroLamports[LevelMax], price)

	pctlLow := 0.0
	priceLow := ResolveUnitPrice(PriceConfig{Percentile: &pctlLow, RecentFees: []uint64{0, 0, 0}})
	assert.EqualValues(t, levelMicroLamports[LevelLow], priceLow)
}

func TestResolveUnitPriceFallsBackToLevel(t *testing.T) {
	price := ResolveUnitPrice(PriceConfig{Level: LevelHigh})
	assert.EqualValues(t, 100_000, price)
}

func TestResolveUnitLimitFixedWins(t *testing.T) {
	fixed := uint32(50_000)
	simulated := uint32(999_999)
	assert.EqualValues(t, 50_000, ResolveUnitLimit(&fixed, &simulated))
}

func TestResolveUnitLimitScalesSimulatedConsumption(t *testing.T) {
	simulated := uint32(100_000)
	assert.EqualValues(t, 120_000, ResolveUnitLimit(nil, &simulated))
}

func TestResolveUnitLimitClampsToNetworkMax(t *testing.T) {
	simulated := uint32(2_000_000)
	assert.EqualValues(t, NetworkMaxComputeUnits, ResolveUnitLimit(nil, &simulated))
}
