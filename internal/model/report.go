package model

import "github.com/ethereum/go-ethereum/common"

// PositionReport is the valuation of one position.
type PositionReport struct {
	Pool          string                 `json:"pool"`
	PoolAddress   common.Address         `json:"pool_address"`
	Kind          PoolKind               `json:"kind"`
	TokenID       uint64                 `json:"token_id,omitempty"`
	Amount0       float64                `json:"amount0"`
	Amount1       float64                `json:"amount1"`
	ValueUSD      float64                `json:"value_usd"`
	FeesUSD       float64                `json:"fees_usd"`
	InRange       bool                   `json:"in_range"`
	Priced        bool                   `json:"priced"`
	Yield         YieldEstimate          `json:"yield"`
	Opportunities []ArbitrageOpportunity `json:"opportunities"`
}

// Report is the output of one valuation pass over a snapshot.
type Report struct {
	ChainID       uint64           `json:"chain_id"`
	BlockNumber   uint64           `json:"block_number"`
	Wallet        common.Address   `json:"wallet"`
	GeneratedAt   string           `json:"generated_at"`
	TotalUSD      float64          `json:"total_usd"`
	Positions     []PositionReport `json:"positions"`
	DerivedPrices []DerivedPrice   `json:"derived_prices"`
}
