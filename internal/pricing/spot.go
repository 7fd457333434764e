package pricing

import (
	"math"

	"github.com/ethereum/go-ethereum/common"

	"positionScope/internal/model"
	"positionScope/internal/tickmath"
	"positionScope/internal/valuation"
)

// SpotPrice returns the USD price of token implied by a single pool, using the
// known price of the pool's other side. ok is false when the pool does not hold
// token, the other side has no known price, or the pool state cannot produce a
// positive finite price.
func SpotPrice(pool model.Pool, token common.Address, known model.PriceBook) (float64, bool) {
	if !pool.Contains(token) {
		return 0, false
	}
	other, tokenIsToken0 := pool.Other(token)
	otherPrice, ok := known.Price(other.Address)
	if !ok {
		return 0, false
	}

	var price float64
	switch pool.Kind {
	case model.KindConstantProduct:
		if pool.Degenerate() {
			return 0, false
		}
		state := pool.ConstantProduct
		reserve0 := valuation.ToDecimal(state.Reserve0, pool.Token0.Decimals)
		reserve1 := valuation.ToDecimal(state.Reserve1, pool.Token1.Decimals)
		tokenReserve, otherReserve := reserve1, reserve0
		if tokenIsToken0 {
			tokenReserve, otherReserve = reserve0, reserve1
		}
		if tokenReserve == 0 {
			return 0, false
		}
		price = otherReserve * otherPrice / tokenReserve
	case model.KindConcentrated:
		if pool.PlaceholderTick() {
			return 0, false
		}
		spot := TickPrice(pool)
		if spot <= 0 {
			return 0, false
		}
		if tokenIsToken0 {
			price = spot * otherPrice
		} else {
			price = otherPrice / spot
		}
	default:
		return 0, false
	}

	if !positive(price) {
		return 0, false
	}
	return price, true
}

// TickPrice returns the decimal-adjusted token1-per-token0 price at the pool's current tick.
func TickPrice(pool model.Pool) float64 {
	raw := tickmath.PriceFromTick(pool.Concentrated.CurrentTick)
	return raw * math.Pow10(int(pool.Token0.Decimals)-int(pool.Token1.Decimals))
}

func positive(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
