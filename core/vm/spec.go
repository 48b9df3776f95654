package vm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/params"
)

// SpecID identifies the protocol rule-set active for a block. The base-chain
// ladder follows the numeric IDs of the engine's hardfork enumeration; the
// rollup ladder sits above it so the two ranges never collide.
type SpecID uint8

const (
	SpecFrontier       SpecID = 0
	SpecHomestead      SpecID = 2
	SpecTangerine      SpecID = 4
	SpecSpuriousDragon SpecID = 5
	SpecByzantium      SpecID = 6
	SpecConstantinople SpecID = 7
	SpecPetersburg     SpecID = 8
	SpecIstanbul       SpecID = 9
	SpecBerlin         SpecID = 11
	SpecLondon         SpecID = 12
	SpecArrowGlacier   SpecID = 13
	SpecGrayGlacier    SpecID = 14
	SpecMerge          SpecID = 15
	SpecShanghai       SpecID = 16
	SpecCancun         SpecID = 17
	SpecPrague         SpecID = 19
	SpecOsaka          SpecID = 20

	// Rollup (optimistic rollup extension) forks.
	SpecBedrock  SpecID = 100
	SpecRegolith SpecID = 101
	SpecCanyon   SpecID = 102
	SpecEcotone  SpecID = 103
	SpecFjord    SpecID = 104
	SpecGranite  SpecID = 105
	SpecHolocene SpecID = 106
	SpecIsthmus  SpecID = 107
)

// IsOptimism reports whether the spec belongs to the rollup ladder.
func (s SpecID) IsOptimism() bool { return s >= SpecBedrock }

// baseEquivalent maps a rollup spec to the base-chain rule-set it builds on.
func (s SpecID) baseEquivalent() SpecID {
	if !s.IsOptimism() {
		return s
	}
	switch s {
	case SpecBedrock, SpecRegolith:
		return SpecMerge
	case SpecCanyon:
		return SpecShanghai
	case SpecEcotone, SpecFjord, SpecGranite, SpecHolocene:
		return SpecCancun
	default: // Isthmus and later
		return SpecPrague
	}
}

// Enabled reports whether the rule-set `other` is active under s. Base-chain
// gates are evaluated against the base equivalent, so a rollup spec enables
// everything its underlying base fork enables plus its own ladder.
func (s SpecID) Enabled(other SpecID) bool {
	if other.IsOptimism() {
		return s.IsOptimism() && s >= other
	}
	return s.baseEquivalent() >= other
}

func (s SpecID) String() string {
	switch s {
	case SpecFrontier:
		return "frontier"
	case SpecHomestead:
		return "homestead"
	case SpecTangerine:
		return "tangerine"
	case SpecSpuriousDragon:
		return "spurious-dragon"
	case SpecByzantium:
		return "byzantium"
	case SpecConstantinople:
		return "constantinople"
	case SpecPetersburg:
		return "petersburg"
	case SpecIstanbul:
		return "istanbul"
	case SpecBerlin:
		return "berlin"
	case SpecLondon:
		return "london"
	case SpecArrowGlacier:
		return "arrow-glacier"
	case SpecGrayGlacier:
		return "gray-glacier"
	case SpecMerge:
		return "merge"
	case SpecShanghai:
		return "shanghai"
	case SpecCancun:
		return "cancun"
	case SpecPrague:
		return "prague"
	case SpecOsaka:
		return "osaka"
	case SpecBedrock:
		return "bedrock"
	case SpecRegolith:
		return "regolith"
	case SpecCanyon:
		return "canyon"
	case SpecEcotone:
		return "ecotone"
	case SpecFjord:
		return "fjord"
	case SpecGranite:
		return "granite"
	case SpecHolocene:
		return "holocene"
	case SpecIsthmus:
		return "isthmus"
	}
	return "unknown"
}

// SpecIDFromChainConfig maps Ethereum fork rules (as exposed by ChainConfig)
// to a SpecID. The ordering mirrors the fork activation ladder.
func SpecIDFromChainConfig(cfg *params.ChainConfig, num uint64, ts uint64) SpecID {
	bn := new(big.Int).SetUint64(num)
	switch {
	case cfg.IsPrague(bn, ts):
		return SpecPrague
	case cfg.IsCancun(bn, ts):
		return SpecCancun
	case cfg.IsShanghai(bn, ts):
		return SpecShanghai
	case cfg.IsLondon(bn):
		if cfg.IsGrayGlacier(bn) {
			return SpecGrayGlacier
		}
		if cfg.IsArrowGlacier(bn) {
			return SpecArrowGlacier
		}
		return SpecLondon
	case cfg.IsBerlin(bn):
		return SpecBerlin
	case cfg.IsIstanbul(bn):
		return SpecIstanbul
	case cfg.IsPetersburg(bn):
		return SpecPetersburg
	case cfg.IsConstantinople(bn):
		return SpecConstantinople
	case cfg.IsByzantium(bn):
		return SpecByzantium
	case cfg.IsEIP158(bn):
		return SpecSpuriousDragon
	case cfg.IsEIP150(bn):
		return SpecTangerine
	case cfg.IsHomestead(bn):
		return SpecHomestead
	default:
		return SpecFrontier
	}
}

// RollupSchedule is the rollup-side fork activation table. Nil entries mean
// the fork never activates. Rollup forks activate by timestamp only.
type RollupSchedule struct {
	RegolithTime *uint64
	CanyonTime   *uint64
	EcotoneTime  *uint64
	FjordTime    *uint64
	GraniteTime  *uint64
	HoloceneTime *uint64
	IsthmusTime  *uint64
}

// SpecAt returns the active rollup SpecID at the given timestamp. Bedrock is
// the floor: a rollup chain has no pre-Bedrock rule-set in this layer.
func (r *RollupSchedule) SpecAt(ts uint64) SpecID {
	active := func(t *uint64) bool { return t != nil && *t <= ts }
	switch {
	case active(r.IsthmusTime):
		return SpecIsthmus
	case active(r.HoloceneTime):
		return SpecHolocene
	case active(r.GraniteTime):
		return SpecGranite
	case active(r.FjordTime):
		return SpecFjord
	case active(r.EcotoneTime):
		return SpecEcotone
	case active(r.CanyonTime):
		return SpecCanyon
	case active(r.RegolithTime):
		return SpecRegolith
	default:
		return SpecBedrock
	}
}
