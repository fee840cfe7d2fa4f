// Package feeestimator produces the two leading compute-budget instructions
// every built transaction carries: a unit-price (priority fee) and a
// unit-limit.
package feeestimator

import (
	"math"
	"sort"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
)

// Level is one entry of the fixed priority-fee table.
type Level string

const (
	LevelNone     Level = "none"
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelVeryHigh Level = "veryHigh"
	LevelMax      Level = "max"
)

// levelMicroLamports is the fixed micro-lamports-per-compute-unit table.
var levelMicroLamports = map[Level]uint64{
	LevelNone:     0,
	LevelLow:      1_000,
	LevelMedium:   10_000,
	LevelHigh:     100_000,
	LevelVeryHigh: 1_000_000,
	LevelMax:      5_000_000,
}

// MicroLamportsForLevel returns the fixed price for a table level. Unknown
// levels resolve to LevelMedium, matching the table's role as a safe default.
func MicroLamportsForLevel(level Level) uint64 {
	if v, ok := levelMicroLamports[level]; ok {
		return v
	}
	return levelMicroLamports[LevelMedium]
}

// NetworkMaxComputeUnits is the network-wide ceiling on a single
// transaction's compute-unit budget.
const NetworkMaxComputeUnits uint32 = 1_400_000

// unitLimitSafetyFactor is applied to a simulation's reported consumption
// when the caller did not pin a fixed unit limit.
const unitLimitSafetyFactor = 1.2

// PriceConfig selects how the unit-price is computed: either an exact value,
// a fixed table level, or a percentile against recent prioritization fees.
type PriceConfig struct {
	Level              Level
	ExactMicroLamports *uint64
	Percentile         *float64 // 0-100, requires RecentFees
	RecentFees         []uint64 // raw getRecentPrioritizationFees samples
}

// ResolveUnitPrice computes the micro-lamports-per-compute-unit price for a
// PriceConfig. An exact price always wins; a percentile query sorts the
// supplied samples ascending, picks the requested percentile, and clamps the
// result to the table's [low, max] bounds so a congestion spike cannot push
// the fee below the floor or beyond the ceiling the level table defines.
func ResolveUnitPrice(cfg PriceConfig) uint64 {
	if cfg.ExactMicroLamports != nil {
		return *cfg.ExactMicroLamports
	}

	if cfg.Percentile != nil && len(cfg.RecentFees) > 0 {
		sorted := append([]uint64(nil), cfg.RecentFees...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		p := *cfg.Percentile
		if p < 0 {
			p = 0
		}
		if p > 100 {
			p = 100
		}
		idx := int(math.Round(p / 100 * float64(len(sorted)-1)))
		price := sorted[idx]

		floor := levelMicroLamports[LevelLow]
		ceiling := levelMicroLamports[LevelMax]
		if price < floor {
			price = floor
		}
		if price > ceiling {
			price = ceiling
		}
		return price
	}

	return MicroLamportsForLevel(cfg.Level)
}

// ResolveUnitLimit returns the compute-unit limit: a caller-pinned fixed
// value takes priority; otherwise a simulated consumption is scaled by the
// safety factor and rounded up; the result is always clamped to
// NetworkMaxComputeUnits.
func ResolveUnitLimit(fixed *uint32, simulatedConsumed *uint32) uint32 {
	var limit uint32
	switch {
	case fixed != nil:
		limit = *fixed
	case simulatedConsumed != nil:
		scaled := math.Ceil(float64(*simulatedConsumed) * unitLimitSafetyFactor)
		if scaled > float64(NetworkMaxComputeUnits) {
			limit = NetworkMaxComputeUnits
		} else {
			limit = uint32(scaled)
		}
	default:
		limit = NetworkMaxComputeUnits
	}

	if limit > NetworkMaxComputeUnits {
		limit = NetworkMaxComputeUnits
	}
	return limit
}

// BuildComputeBudgetInstructions produces the unit-limit and unit-price
// instructions in the order the builder prepends them.
func BuildComputeBudgetInstructions(unitLimit uint32, microLamportsPrice uint64) []solana.Instruction {
	return []solana.Instruction{
		computebudget.NewSetComputeUnitLimitInstruction(unitLimit).Build(),
		computebudget.NewSetComputeUnitPriceInstruction(microLamportsPrice).Build(),
	}
}
