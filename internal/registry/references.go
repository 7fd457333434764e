package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"positionScope/internal/model"
)

// AnchorSource labels quotes configured directly for an anchor token.
const AnchorSource = "anchor"

// ReferencePrices builds the reference price book. anchors maps an anchor
// symbol or address to its USD price; pegs maps a token address to the anchor
// (symbol or address, case-insensitive) whose price it tracks, so a wrapped asset and a stable both quote off the
// same market price.
func ReferencePrices(anchors, pegs map[string]string, reg *Registry) (model.PriceBook, error) {
	book := make(model.PriceBook, len(anchors)+len(pegs))
	bySymbol := make(map[string]model.PriceQuote, len(anchors))

	for _, key := range sortedKeys(anchors) {
		token, err := resolveAnchor(key, reg)
		if err != nil {
			return nil, err
		}
		price, err := parseUSD(anchors[key])
		if err != nil {
			return nil, fmt.Errorf("anchor %s: %w", key, err)
		}
		quote := model.PriceQuote{Token: token.Address, USDPrice: price, Source: AnchorSource}
		book[token.Address] = quote
		bySymbol[strings.ToLower(key)] = quote
	}

	for _, key := range sortedKeys(pegs) {
		if !common.IsHexAddress(key) {
			return nil, fmt.Errorf("peg %q: invalid token address", key)
		}
		anchor, ok := bySymbol[strings.ToLower(pegs[key])]
		if !ok {
			return nil, fmt.Errorf("peg %s: unknown anchor %q", key, pegs[key])
		}
		addr := common.HexToAddress(key)
		if _, exists := book[addr]; exists {
			continue
		}
		book[addr] = model.PriceQuote{
			Token:    addr,
			USDPrice: anchor.USDPrice,
			Source:   "peg:" + pegs[key],
		}
	}

	return book, nil
}

func resolveAnchor(key string, reg *Registry) (model.Token, error) {
	if common.IsHexAddress(key) {
		return model.Token{Address: common.HexToAddress(key)}, nil
	}
	if reg == nil {
		return model.Token{}, fmt.Errorf("anchor %q: registry is nil", key)
	}
	token, ok := reg.BySymbol(key)
	if !ok {
		return model.Token{}, fmt.Errorf("anchor %q: symbol not in registry", key)
	}
	return token, nil
}

func parseUSD(input string) (float64, error) {
	value, err := decimal.NewFromString(input)
	if err != nil {
		return 0, fmt.Errorf("parse usd price %q: %w", input, err)
	}
	if !value.IsPositive() {
		return 0, fmt.Errorf("usd price must be positive: %s", input)
	}
	return value.InexactFloat64(), nil
}

func sortedKeys(m map[string]string) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}
