// Package tickmath converts between concentrated-liquidity ticks and prices.
package tickmath

import (
	"fmt"
	"math"
)

const (
	// MinTick and MaxTick bound the ticks a V3 pool accepts.
	MinTick int32 = -887272
	MaxTick int32 = 887272

	// FullRangeWidth is the tick width of a full-range position.
	FullRangeWidth = int64(MaxTick) - int64(MinTick)

	tickBase = 1.0001
)

// PriceFromTick returns 1.0001^tick: token1 per token0 in raw units.
func PriceFromTick(tick int32) float64 {
	return math.Pow(tickBase, float64(tick))
}

// SqrtPriceFromTick returns 1.0001^(tick/2).
func SqrtPriceFromTick(tick int32) float64 {
	return math.Pow(tickBase, float64(tick)/2)
}

// CheckTick rejects ticks outside [MinTick, MaxTick].
func CheckTick(tick int32) error {
	if tick < MinTick || tick > MaxTick {
		return fmt.Errorf("tick %d out of range [%d, %d]", tick, MinTick, MaxTick)
	}
	return nil
}
