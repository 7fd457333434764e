package config

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"positionScope/internal/yield"
)

// loadCalibration starts from the stock heuristics and applies any
// calibration.* overrides.
func loadCalibration(v *viper.Viper) (yield.Calibration, error) {
	cal := yield.DefaultCalibration()

	floats := map[string]*float64{
		"calibration.primary-pair-volume-ratio": &cal.PrimaryPairVolumeRatio,
		"calibration.anchor-pair-volume-ratio":  &cal.AnchorPairVolumeRatio,
		"calibration.other-pair-volume-ratio":   &cal.OtherPairVolumeRatio,
		"calibration.constant-product-fee-rate": &cal.ConstantProductFeeRate,
		"calibration.max-concentration-factor":  &cal.MaxConcentrationFactor,
		"calibration.out-of-range-penalty":      &cal.OutOfRangePenalty,
		"calibration.assumed-pool-share":        &cal.AssumedPoolShare,
		"calibration.assumed-active-lps":        &cal.AssumedActiveLPs,
		"calibration.wide-band-percent":         &cal.WideBandPercent,
	}
	for key, target := range floats {
		if v.IsSet(key) {
			*target = v.GetFloat64(key)
		}
	}

	if v.IsSet("calibration.primary-pair") {
		pair, err := ParseAddresses(getStringSlice(v, "calibration.primary-pair"))
		if err != nil {
			return yield.Calibration{}, fmt.Errorf("calibration.primary-pair: %w", err)
		}
		if len(pair) != 2 {
			return yield.Calibration{}, fmt.Errorf("calibration.primary-pair needs two addresses, got %d", len(pair))
		}
		cal.PrimaryPair = [2]common.Address{pair[0], pair[1]}
	}
	if v.IsSet("calibration.anchor-tokens") {
		anchors, err := ParseAddresses(getStringSlice(v, "calibration.anchor-tokens"))
		if err != nil {
			return yield.Calibration{}, fmt.Errorf("calibration.anchor-tokens: %w", err)
		}
		cal.AnchorTokens = anchors
	}
	if v.IsSet("calibration.in-range-tiers") {
		var tiers []yield.RangeTier
		if err := v.UnmarshalKey("calibration.in-range-tiers", &tiers); err != nil {
			return yield.Calibration{}, fmt.Errorf("calibration.in-range-tiers: %w", err)
		}
		cal.InRangeTiers = tiers
	}

	if err := validateCalibration(cal); err != nil {
		return yield.Calibration{}, err
	}
	return cal, nil
}

func validateCalibration(cal yield.Calibration) error {
	positive := map[string]float64{
		"primary-pair-volume-ratio": cal.PrimaryPairVolumeRatio,
		"anchor-pair-volume-ratio":  cal.AnchorPairVolumeRatio,
		"other-pair-volume-ratio":   cal.OtherPairVolumeRatio,
		"assumed-active-lps":        cal.AssumedActiveLPs,
		"wide-band-percent":         cal.WideBandPercent,
	}
	for name, value := range positive {
		if value <= 0 {
			return fmt.Errorf("calibration.%s must be positive", name)
		}
	}

	if cal.ConstantProductFeeRate <= 0 || cal.ConstantProductFeeRate >= 1 {
		return fmt.Errorf("calibration.constant-product-fee-rate must be in (0, 1)")
	}
	if cal.MaxConcentrationFactor < 1 {
		return fmt.Errorf("calibration.max-concentration-factor must be at least 1")
	}
	if cal.OutOfRangePenalty <= 0 || cal.OutOfRangePenalty > 1 {
		return fmt.Errorf("calibration.out-of-range-penalty must be in (0, 1]")
	}
	if cal.AssumedPoolShare <= 0 || cal.AssumedPoolShare > 1 {
		return fmt.Errorf("calibration.assumed-pool-share must be in (0, 1]")
	}

	if len(cal.InRangeTiers) == 0 {
		return fmt.Errorf("calibration.in-range-tiers must not be empty")
	}
	for i, tier := range cal.InRangeTiers {
		if tier.Probability < 0 || tier.Probability > 1 {
			return fmt.Errorf("calibration.in-range-tiers[%d]: probability must be in [0, 1]", i)
		}
		if i > 0 && tier.MinWidthPercent >= cal.InRangeTiers[i-1].MinWidthPercent {
			return fmt.Errorf("calibration.in-range-tiers must be sorted by descending width")
		}
	}
	return nil
}
