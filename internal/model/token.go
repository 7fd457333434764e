package model

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
)

// Token captures ERC20 identity and metadata.
type Token struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`
	Decimals uint8          `json:"decimals"`
}

// Label returns the symbol, or the hex address when the symbol is unknown.
func (t Token) Label() string {
	if t.Symbol != "" {
		return t.Symbol
	}
	return t.Address.Hex()
}

// TokenLess reports whether a sorts before b as raw address bytes.
func TokenLess(a, b common.Address) bool {
	return bytes.Compare(a.Bytes(), b.Bytes()) < 0
}
