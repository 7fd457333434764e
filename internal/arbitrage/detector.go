// Package arbitrage flags pools whose implied spot price deviates from an
// external reference price.
package arbitrage

import (
	"math"

	"positionScope/internal/model"
	"positionScope/internal/pricing"
)

// DefaultThresholdPercent is the minimum absolute deviation reported.
const DefaultThresholdPercent = 1.0

// DetectOpportunities compares the position pool's implied price for each of its
// tokens against reference and reports deviations of at least thresholdPercent.
// Only the position's own pool is used; prices are not aggregated across pools.
func DetectOpportunities(position model.Position, reference model.PriceBook, thresholdPercent float64) []model.ArbitrageOpportunity {
	pool := position.Pool
	threshold := math.Abs(thresholdPercent)

	var out []model.ArbitrageOpportunity
	for _, token := range []model.Token{pool.Token0, pool.Token1} {
		dexPrice, ok := pricing.SpotPrice(pool, token.Address, reference)
		if !ok {
			continue
		}
		refPrice, ok := reference.Price(token.Address)
		if !ok {
			continue
		}

		deviation := (dexPrice - refPrice) / refPrice * 100
		if math.Abs(deviation) < threshold || deviation == 0 {
			continue
		}

		out = append(out, model.ArbitrageOpportunity{
			Token:            token.Address,
			Symbol:           token.Symbol,
			DexPrice:         dexPrice,
			ReferencePrice:   refPrice,
			DeviationPercent: deviation,
			Classification:   Classify(deviation),
			Source:           pool.Source(),
		})
	}
	return out
}

// Classify maps a positive deviation to a premium and a negative one to a discount.
func Classify(deviationPercent float64) model.Classification {
	if deviationPercent > 0 {
		return model.Premium
	}
	return model.Discount
}
