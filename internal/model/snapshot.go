package model

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Snapshot is the immutable input of one valuation pass.
type Snapshot struct {
	ChainID         uint64         `json:"chain_id"`
	BlockNumber     uint64         `json:"block_number"`
	Wallet          common.Address `json:"wallet"`
	TakenAt         string         `json:"taken_at"`
	Positions       []Position     `json:"positions"`
	MarketPools     []Pool         `json:"market_pools,omitempty"`
	ReferencePrices []PriceQuote   `json:"reference_prices"`
}

// Validate checks every pool in the snapshot.
func (s Snapshot) Validate() error {
	for i, position := range s.Positions {
		if err := position.Pool.Validate(); err != nil {
			return fmt.Errorf("position %d: %w", i, err)
		}
	}
	for i, pool := range s.MarketPools {
		if err := pool.Validate(); err != nil {
			return fmt.Errorf("market pool %d: %w", i, err)
		}
	}
	return nil
}

// Pools returns the distinct pools of the snapshot: position pools followed by
// market pools, one entry per pool address with the first occurrence kept.
// Several positions in one pool are one price source. Pools without an address
// are never merged.
func (s Snapshot) Pools() []Pool {
	pools := make([]Pool, 0, len(s.Positions)+len(s.MarketPools))
	seen := make(map[common.Address]struct{}, cap(pools))
	add := func(pool Pool) {
		if pool.Address != (common.Address{}) {
			if _, ok := seen[pool.Address]; ok {
				return
			}
			seen[pool.Address] = struct{}{}
		}
		pools = append(pools, pool)
	}
	for _, position := range s.Positions {
		add(position.Pool)
	}
	for _, pool := range s.MarketPools {
		add(pool)
	}
	return pools
}

// References returns the reference quotes as a PriceBook.
func (s Snapshot) References() PriceBook {
	book := make(PriceBook, len(s.ReferencePrices))
	for _, quote := range s.ReferencePrices {
		book[quote.Token] = quote
	}
	return book
}
