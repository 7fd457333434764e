// Package pricing derives USD prices for tokens without a direct feed from
// pools that pair them with a token of known price. Derivation is single hop:
// a derived price never feeds another derivation.
package pricing

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"

	"positionScope/internal/model"
)

// Pool counts needed for each confidence tier.
const (
	HighConfidencePools   = 3
	MediumConfidencePools = 2
)

// DerivePrice derives token's USD price as the median of the spot prices
// implied by every pool pairing it with a known-price token.
func DerivePrice(token common.Address, pools []model.Pool, known model.PriceBook) (model.DerivedPrice, bool) {
	var (
		values  []float64
		sources []string
	)
	for _, pool := range pools {
		price, ok := SpotPrice(pool, token, known)
		if !ok {
			continue
		}
		values = append(values, price)
		sources = append(sources, pool.Source())
	}
	if len(values) == 0 {
		return model.DerivedPrice{}, false
	}

	return model.DerivedPrice{
		Token:             token,
		USDPrice:          Median(values),
		ContributingPools: sources,
		Confidence:        ConfidenceFor(len(sources)),
	}, true
}

// DeriveAllPrices derives prices for every token in pools that is not already known.
func DeriveAllPrices(pools []model.Pool, known model.PriceBook) map[common.Address]model.DerivedPrice {
	tokens := lo.Uniq(lo.FlatMap(pools, func(pool model.Pool, _ int) []common.Address {
		return []common.Address{pool.Token0.Address, pool.Token1.Address}
	}))
	unknown := lo.Filter(tokens, func(token common.Address, _ int) bool {
		_, ok := known[token]
		return !ok
	})

	derived := make(map[common.Address]model.DerivedPrice, len(unknown))
	for _, token := range unknown {
		if price, ok := DerivePrice(token, pools, known); ok {
			derived[token] = price
		}
	}
	return derived
}

// ResolvePrice prefers a known price and falls back to a derived one.
func ResolvePrice(token common.Address, known model.PriceBook, derived map[common.Address]model.DerivedPrice) (float64, bool) {
	if price, ok := known.Price(token); ok {
		return price, true
	}
	if price, ok := derived[token]; ok && positive(price.USDPrice) {
		return price.USDPrice, true
	}
	return 0, false
}

// ConfidenceFor grades a derivation by the number of corroborating pools.
func ConfidenceFor(pools int) model.Confidence {
	switch {
	case pools >= HighConfidencePools:
		return model.ConfidenceHigh
	case pools == MediumConfidencePools:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

// Median returns the middle value, averaging the two middle values for even counts.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// SortedTokens returns the keys of derived in ascending address order.
func SortedTokens(derived map[common.Address]model.DerivedPrice) []common.Address {
	tokens := lo.Keys(derived)
	sort.Slice(tokens, func(i, j int) bool {
		return model.TokenLess(tokens[i], tokens[j])
	})
	return tokens
}
