// Package valuation computes the token amounts attributable to a pool position.
package valuation

import (
	"math"
	"math/big"

	"positionScope/internal/model"
	"positionScope/internal/tickmath"
)

// Amounts holds decimal-adjusted token quantities.
type Amounts struct {
	Amount0 float64 `json:"amount0"`
	Amount1 float64 `json:"amount1"`
}

// AmountsForPosition returns the decimal-adjusted token amounts held by position.
// ok is false when the position cannot be valued: no shares outstanding or a
// degenerate constant-product pool.
func AmountsForPosition(position model.Position) (Amounts, bool) {
	pool := position.Pool
	switch pool.Kind {
	case model.KindConstantProduct:
		return constantProductAmounts(pool, position.Shares)
	case model.KindConcentrated:
		return concentratedAmounts(pool), true
	default:
		return Amounts{}, false
	}
}

// UncollectedFees returns the decimal-adjusted fees owed to a concentrated position.
func UncollectedFees(pool model.Pool) Amounts {
	if pool.Kind != model.KindConcentrated {
		return Amounts{}
	}
	return Amounts{
		Amount0: ToDecimal(pool.Concentrated.UncollectedFees0, pool.Token0.Decimals),
		Amount1: ToDecimal(pool.Concentrated.UncollectedFees1, pool.Token1.Decimals),
	}
}

// ToDecimal scales a raw on-chain amount down by 10^decimals.
func ToDecimal(value model.Amount, decimals uint8) float64 {
	if value.IsZero() {
		return 0
	}
	out, _ := new(big.Rat).SetFrac(value.Big(), pow10(decimals)).Float64()
	return out
}

func constantProductAmounts(pool model.Pool, shares model.Amount) (Amounts, bool) {
	state := pool.ConstantProduct
	if state.TotalShares.IsZero() {
		return Amounts{}, false
	}
	if pool.Degenerate() && !(state.Reserve0.IsZero() && state.Reserve1.IsZero()) {
		return Amounts{}, false
	}

	share := new(big.Rat).SetFrac(shares.Big(), state.TotalShares.Big())
	return Amounts{
		Amount0: scaledShare(state.Reserve0, share, pool.Token0.Decimals),
		Amount1: scaledShare(state.Reserve1, share, pool.Token1.Decimals),
	}, true
}

func scaledShare(reserve model.Amount, share *big.Rat, decimals uint8) float64 {
	amount := new(big.Rat).SetInt(reserve.Big())
	amount.Mul(amount, share)
	amount.Quo(amount, new(big.Rat).SetInt(pow10(decimals)))
	out, _ := amount.Float64()
	return out
}

func concentratedAmounts(pool model.Pool) Amounts {
	state := pool.Concentrated
	if state.Liquidity.IsZero() || pool.PlaceholderTick() {
		return Amounts{}
	}

	liquidity, _ := new(big.Float).SetInt(state.Liquidity.Big()).Float64()
	sqrtLower := tickmath.SqrtPriceFromTick(state.TickLower)
	sqrtUpper := tickmath.SqrtPriceFromTick(state.TickUpper)

	var raw0, raw1 float64
	switch {
	case state.CurrentTick < state.TickLower:
		raw1 = liquidity * (sqrtUpper - sqrtLower)
	case state.CurrentTick >= state.TickUpper:
		raw0 = liquidity * (1/sqrtLower - 1/sqrtUpper)
	default:
		sqrtCurrent := tickmath.SqrtPriceFromTick(state.CurrentTick)
		raw0 = liquidity * (1/sqrtCurrent - 1/sqrtUpper)
		raw1 = liquidity * (sqrtCurrent - sqrtLower)
	}

	return Amounts{
		Amount0: raw0 / math.Pow10(int(pool.Token0.Decimals)),
		Amount1: raw1 / math.Pow10(int(pool.Token1.Decimals)),
	}
}

func pow10(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}
