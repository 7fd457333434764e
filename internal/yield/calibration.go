package yield

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
)

// RangeTier maps a minimum relative price-range width to the probability of the
// pool price staying inside the range.
type RangeTier struct {
	MinWidthPercent float64 `mapstructure:"min-width-percent"`
	Probability     float64 `mapstructure:"probability"`
}

// Calibration holds the heuristic constants behind APY estimation. None of the
// values are measured; they exist so they can be tuned without touching the
// estimator.
type Calibration struct {
	// PrimaryPair is the anchor pair with the deepest volume (e.g. WETH/USDC).
	PrimaryPair [2]common.Address
	// AnchorTokens are tokens whose pairs trade above the long tail.
	AnchorTokens []common.Address

	PrimaryPairVolumeRatio float64
	AnchorPairVolumeRatio  float64
	OtherPairVolumeRatio   float64

	// ConstantProductFeeRate is the swap fee of constant-product pools.
	ConstantProductFeeRate float64

	MaxConcentrationFactor float64
	InRangeTiers           []RangeTier
	OutOfRangePenalty      float64

	// AssumedPoolShare is the fraction of a concentrated pool's TVL the position is assumed to be.
	// TODO: replace with the pool's real TVL once the reader loads pool token balances.
	AssumedPoolShare float64
	AssumedActiveLPs float64

	// WideBandPercent separates wide from narrow ranges when grading confidence.
	WideBandPercent float64
}

// DefaultCalibration returns the stock heuristics.
func DefaultCalibration() Calibration {
	return Calibration{
		PrimaryPairVolumeRatio: 1.5,
		AnchorPairVolumeRatio:  0.8,
		OtherPairVolumeRatio:   0.3,
		ConstantProductFeeRate: 0.003,
		MaxConcentrationFactor: 100,
		InRangeTiers: []RangeTier{
			{MinWidthPercent: 80, Probability: 0.95},
			{MinWidthPercent: 40, Probability: 0.80},
			{MinWidthPercent: 20, Probability: 0.60},
			{MinWidthPercent: 10, Probability: 0.40},
			{MinWidthPercent: 0, Probability: 0.20},
		},
		OutOfRangePenalty: 0.5,
		AssumedPoolShare:  0.05,
		AssumedActiveLPs:  20,
		WideBandPercent:   20,
	}
}

// VolumeRatio returns the assumed daily volume / TVL ratio for a token pair.
func (c Calibration) VolumeRatio(token0, token1 common.Address) float64 {
	primary := c.PrimaryPair
	if primary[0] != (common.Address{}) &&
		((token0 == primary[0] && token1 == primary[1]) || (token0 == primary[1] && token1 == primary[0])) {
		return c.PrimaryPairVolumeRatio
	}
	if lo.Contains(c.AnchorTokens, token0) || lo.Contains(c.AnchorTokens, token1) {
		return c.AnchorPairVolumeRatio
	}
	return c.OtherPairVolumeRatio
}

// InRangeProbability looks up the tier for a relative range width. Tiers are
// matched in order, so they must be sorted by descending width.
func (c Calibration) InRangeProbability(widthPercent float64) float64 {
	for _, tier := range c.InRangeTiers {
		if widthPercent >= tier.MinWidthPercent {
			return tier.Probability
		}
	}
	return 0
}
