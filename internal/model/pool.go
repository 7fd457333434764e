package model

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"positionScope/internal/tickmath"
)

// PoolKind tags the Pool variant.
type PoolKind string

const (
	KindConstantProduct PoolKind = "constant_product"
	KindConcentrated    PoolKind = "concentrated"
)

// Fee tiers for concentrated pools, in basis points.
var FeeTiers = []uint32{1, 5, 25, 30, 100}

// placeholderTickDistance bounds how far a range may sit from tick 0 before
// a zero current tick is treated as unset.
const placeholderTickDistance = 1000

// ConstantProductState is the reserve state of a V2-style pair.
type ConstantProductState struct {
	Reserve0    Amount `json:"reserve0"`
	Reserve1    Amount `json:"reserve1"`
	TotalShares Amount `json:"total_shares"`
}

// ConcentratedState is a V3-style position range together with the pool's current tick.
// Liquidity is already scoped to the owner's range.
type ConcentratedState struct {
	FeeTier          uint32 `json:"fee_tier_bps"`
	TickLower        int32  `json:"tick_lower"`
	TickUpper        int32  `json:"tick_upper"`
	CurrentTick      int32  `json:"current_tick"`
	Liquidity        Amount `json:"liquidity"`
	UncollectedFees0 Amount `json:"uncollected_fees0"`
	UncollectedFees1 Amount `json:"uncollected_fees1"`
}

// Pool is a tagged variant over constant-product and concentrated-liquidity pools.
// Only the state matching Kind is meaningful.
type Pool struct {
	Address         common.Address       `json:"address"`
	Label           string               `json:"label,omitempty"`
	Kind            PoolKind             `json:"kind"`
	Token0          Token                `json:"token0"`
	Token1          Token                `json:"token1"`
	ConstantProduct ConstantProductState `json:"constant_product"`
	Concentrated    ConcentratedState    `json:"concentrated"`
}

// Source returns the label used to attribute prices to this pool.
func (p Pool) Source() string {
	if p.Label != "" {
		return p.Label
	}
	kind := "v2"
	if p.Kind == KindConcentrated {
		kind = fmt.Sprintf("v3-%dbps", p.Concentrated.FeeTier)
	}
	return fmt.Sprintf("%s %s/%s", kind, p.Token0.Label(), p.Token1.Label())
}

// Contains reports whether token is one side of the pool.
func (p Pool) Contains(token common.Address) bool {
	return p.Token0.Address == token || p.Token1.Address == token
}

// Other returns the side opposite to token and whether token is token0.
func (p Pool) Other(token common.Address) (Token, bool) {
	if p.Token0.Address == token {
		return p.Token1, true
	}
	return p.Token0, false
}

// Degenerate reports a constant-product pool with an empty reserve.
func (p Pool) Degenerate() bool {
	if p.Kind != KindConstantProduct {
		return false
	}
	return p.ConstantProduct.Reserve0.IsZero() || p.ConstantProduct.Reserve1.IsZero()
}

// InRange reports tickLower <= currentTick < tickUpper.
func (p Pool) InRange() bool {
	if p.Kind != KindConcentrated {
		return false
	}
	s := p.Concentrated
	return s.TickLower <= s.CurrentTick && s.CurrentTick < s.TickUpper
}

// PlaceholderTick reports a zero current tick next to a range far from zero,
// which indicates slot0 was never read rather than a real price.
func (p Pool) PlaceholderTick() bool {
	if p.Kind != KindConcentrated {
		return false
	}
	s := p.Concentrated
	return s.CurrentTick == 0 && (s.TickLower > placeholderTickDistance || s.TickUpper < -placeholderTickDistance)
}

// Validate checks the structural invariants the valuation core relies on.
func (p Pool) Validate() error {
	if p.Token0.Address == p.Token1.Address {
		return fmt.Errorf("pool %s: identical tokens", p.Address.Hex())
	}
	if !TokenLess(p.Token0.Address, p.Token1.Address) {
		return fmt.Errorf("pool %s: token0 must sort before token1", p.Address.Hex())
	}

	switch p.Kind {
	case KindConstantProduct:
		return nil
	case KindConcentrated:
		s := p.Concentrated
		if s.TickLower >= s.TickUpper {
			return fmt.Errorf("pool %s: tick lower %d >= tick upper %d", p.Address.Hex(), s.TickLower, s.TickUpper)
		}
		for _, tick := range []int32{s.TickLower, s.TickUpper, s.CurrentTick} {
			if err := tickmath.CheckTick(tick); err != nil {
				return fmt.Errorf("pool %s: %w", p.Address.Hex(), err)
			}
		}
		if !validFeeTier(s.FeeTier) {
			return fmt.Errorf("pool %s: unsupported fee tier %d", p.Address.Hex(), s.FeeTier)
		}
		return nil
	default:
		return fmt.Errorf("pool %s: unknown kind %q", p.Address.Hex(), p.Kind)
	}
}

func validFeeTier(fee uint32) bool {
	for _, tier := range FeeTiers {
		if tier == fee {
			return true
		}
	}
	return false
}
