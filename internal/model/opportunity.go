package model

import "github.com/ethereum/go-ethereum/common"

// Classification tells which way a pool price deviates from its reference.
type Classification string

const (
	// Premium: the token is overpriced on-chain; sell there, acquire via the reference venue.
	Premium Classification = "premium"
	// Discount: the token is cheap on-chain; buy there, sell via the reference venue.
	Discount Classification = "discount"
)

// ArbitrageOpportunity is a pool spot price deviating from its reference price.
type ArbitrageOpportunity struct {
	Token            common.Address `json:"token"`
	Symbol           string         `json:"symbol"`
	DexPrice         float64        `json:"dex_price"`
	ReferencePrice   float64        `json:"reference_price"`
	DeviationPercent float64        `json:"deviation_percent"`
	Classification   Classification `json:"classification"`
	Source           string         `json:"source"`
}
