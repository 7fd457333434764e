// Package yield estimates position APY from pool value, assumed trading volume
// and fee tier.
package yield

import (
	"math"
	"math/big"

	"go.uber.org/zap"

	"positionScope/internal/model"
	"positionScope/internal/tickmath"
	"positionScope/internal/valuation"
)

const (
	daysPerYear = 365
	bpsDenom    = 10_000
)

// Estimator produces heuristic APY estimates.
type Estimator struct {
	cal    Calibration
	logger *zap.Logger
}

// NewEstimator builds an Estimator with the given calibration.
func NewEstimator(cal Calibration, logger *zap.Logger) *Estimator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Estimator{cal: cal, logger: logger}
}

// EstimateAPY estimates the yield of position using prices for both pool tokens.
// Missing prices or a zero value yield an unavailable estimate, never an error.
func (e *Estimator) EstimateAPY(position model.Position, prices model.PriceBook) model.YieldEstimate {
	pool := position.Pool
	price0, ok0 := prices.Price(pool.Token0.Address)
	price1, ok1 := prices.Price(pool.Token1.Address)
	if !ok0 || !ok1 {
		e.logger.Debug("yield unavailable: missing price", zap.String("pool", pool.Source()))
		return model.UnavailableYield()
	}

	switch pool.Kind {
	case model.KindConstantProduct:
		return e.constantProduct(position, price0, price1)
	case model.KindConcentrated:
		return e.concentrated(position, price0, price1)
	default:
		return model.UnavailableYield()
	}
}

func (e *Estimator) constantProduct(position model.Position, price0, price1 float64) model.YieldEstimate {
	pool := position.Pool
	if pool.Degenerate() {
		return model.UnavailableYield()
	}
	state := pool.ConstantProduct
	tvl := valuation.ToDecimal(state.Reserve0, pool.Token0.Decimals)*price0 +
		valuation.ToDecimal(state.Reserve1, pool.Token1.Decimals)*price1
	if tvl <= 0 {
		return model.UnavailableYield()
	}

	ratio := e.cal.VolumeRatio(pool.Token0.Address, pool.Token1.Address)
	dailyFees := tvl * ratio * e.cal.ConstantProductFeeRate
	apy := math.Max(dailyFees/tvl*daysPerYear*100, 0)

	confidence := model.ConfidenceMedium
	if ratio == e.cal.OtherPairVolumeRatio {
		confidence = model.ConfidenceLow
	}

	return model.YieldEstimate{
		APY:          apy,
		DailyFeesUSD: dailyFees * shareOf(position.Shares, state.TotalShares),
		Method:       model.YieldMethodConstantProduct,
		Confidence:   confidence,
	}
}

func (e *Estimator) concentrated(position model.Position, price0, price1 float64) model.YieldEstimate {
	pool := position.Pool
	amounts, ok := valuation.AmountsForPosition(position)
	if !ok {
		return model.UnavailableYield()
	}
	value := amounts.Amount0*price0 + amounts.Amount1*price1
	if value <= 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return model.UnavailableYield()
	}

	state := pool.Concentrated
	width := int64(state.TickUpper) - int64(state.TickLower)
	concentration := math.Min(float64(tickmath.FullRangeWidth)/float64(width), e.cal.MaxConcentrationFactor)

	widthPercent := RangeWidthPercent(state.TickLower, state.TickUpper)
	inRange := pool.InRange()
	probability := e.cal.InRangeProbability(widthPercent)
	if !inRange {
		probability *= e.cal.OutOfRangePenalty
	}

	poolTVL := value / e.cal.AssumedPoolShare
	dailyVolume := poolTVL * e.cal.VolumeRatio(pool.Token0.Address, pool.Token1.Address)
	poolDailyFees := dailyVolume * float64(state.FeeTier) / bpsDenom
	effectiveShare := concentration * probability / e.cal.AssumedActiveLPs
	userDailyFees := poolDailyFees * effectiveShare
	apy := math.Max(userDailyFees/value*daysPerYear*100, 0)

	confidence := model.ConfidenceMedium
	if !inRange && widthPercent < e.cal.WideBandPercent {
		confidence = model.ConfidenceLow
	}

	e.logger.Debug("concentrated yield",
		zap.String("pool", pool.Source()),
		zap.Float64("value_usd", value),
		zap.Float64("concentration", concentration),
		zap.Float64("in_range_probability", probability),
		zap.Float64("apy", apy),
	)

	return model.YieldEstimate{
		APY:          apy,
		DailyFeesUSD: userDailyFees,
		Method:       model.YieldMethodConcentrated,
		Confidence:   confidence,
	}
}

// RangeWidthPercent is the relative price span of a tick range: priceUpper/priceLower - 1, in percent.
func RangeWidthPercent(tickLower, tickUpper int32) float64 {
	return (math.Pow(1.0001, float64(int64(tickUpper)-int64(tickLower))) - 1) * 100
}

func shareOf(shares, total model.Amount) float64 {
	if total.IsZero() {
		return 0
	}
	share, _ := new(big.Rat).SetFrac(shares.Big(), total.Big()).Float64()
	return share
}
