package model

import (
	"math"

	"github.com/ethereum/go-ethereum/common"
)

// Confidence grades how well a derived price is corroborated.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// PriceQuote is an externally supplied, trusted USD price.
type PriceQuote struct {
	Token    common.Address `json:"token"`
	USDPrice float64        `json:"usd_price"`
	Source   string         `json:"source"`
}

// DerivedPrice is a USD price computed from pool ratios.
type DerivedPrice struct {
	Token             common.Address `json:"token"`
	USDPrice          float64        `json:"usd_price"`
	ContributingPools []string       `json:"contributing_pools"`
	Confidence        Confidence     `json:"confidence"`
}

// PriceBook maps tokens to trusted quotes.
type PriceBook map[common.Address]PriceQuote

// Price returns a usable USD price for token.
func (b PriceBook) Price(token common.Address) (float64, bool) {
	quote, ok := b[token]
	if !ok || !usablePrice(quote.USDPrice) {
		return 0, false
	}
	return quote.USDPrice, true
}

// Merge returns a new book with derived prices added for tokens not already quoted.
func (b PriceBook) Merge(derived map[common.Address]DerivedPrice) PriceBook {
	out := make(PriceBook, len(b)+len(derived))
	for addr, quote := range b {
		out[addr] = quote
	}
	for addr, price := range derived {
		if _, ok := out[addr]; ok {
			continue
		}
		out[addr] = PriceQuote{Token: addr, USDPrice: price.USDPrice, Source: "derived"}
	}
	return out
}

func usablePrice(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
