package model

import "github.com/ethereum/go-ethereum/common"

// Position is a wallet's ownership of a pool. Shares applies to constant-product
// pools; concentrated positions carry their liquidity on the pool state.
type Position struct {
	Owner   common.Address `json:"owner"`
	TokenID uint64         `json:"token_id,omitempty"`
	Shares  Amount         `json:"shares"`
	Pool    Pool           `json:"pool"`
}
