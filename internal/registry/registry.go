package registry

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"positionScope/internal/dex"
	"positionScope/internal/model"
)

// TokenConfig is one static registry entry as it appears in config files.
type TokenConfig struct {
	Address  string `mapstructure:"address"`
	Symbol   string `mapstructure:"symbol"`
	Decimals uint8  `mapstructure:"decimals"`
}

// Registry holds token metadata per chain. Tokens missing from the static list
// are loaded through ERC20 calls and cached.
type Registry struct {
	caller dex.Caller
	logger *zap.Logger

	mu     sync.RWMutex
	tokens map[common.Address]model.Token
}

// New builds a registry from static entries. caller may be nil for offline use.
func New(entries []TokenConfig, caller dex.Caller, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := &Registry{
		caller: caller,
		logger: logger,
		tokens: make(map[common.Address]model.Token, len(entries)),
	}
	for _, entry := range entries {
		if !common.IsHexAddress(entry.Address) {
			return nil, fmt.Errorf("token %q: invalid address %q", entry.Symbol, entry.Address)
		}
		if entry.Symbol == "" {
			return nil, fmt.Errorf("token %s: symbol is required", entry.Address)
		}
		addr := common.HexToAddress(entry.Address)
		reg.tokens[addr] = model.Token{Address: addr, Symbol: entry.Symbol, Decimals: entry.Decimals}
	}
	return reg, nil
}

// Lookup returns the cached token for address.
func (r *Registry) Lookup(address common.Address) (model.Token, bool) {
	r.mu.RLock()
	token, ok := r.tokens[address]
	r.mu.RUnlock()
	return token, ok
}

// BySymbol returns the first token with the given symbol, ignoring case.
// Ties are broken by address so the result does not depend on map order.
func (r *Registry) BySymbol(symbol string) (model.Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		found model.Token
		ok    bool
	)
	for _, token := range r.tokens {
		if !strings.EqualFold(token.Symbol, symbol) {
			continue
		}
		if !ok || model.TokenLess(token.Address, found.Address) {
			found, ok = token, true
		}
	}
	return found, ok
}

// Resolve returns token metadata, falling back to the chain for unknown tokens.
func (r *Registry) Resolve(ctx context.Context, address common.Address) (model.Token, error) {
	if token, ok := r.Lookup(address); ok {
		return token, nil
	}
	if r.caller == nil {
		return model.Token{}, fmt.Errorf("token %s not in registry", address.Hex())
	}

	token, err := dex.FetchToken(ctx, r.caller, address, r.logger)
	if err != nil {
		return model.Token{}, fmt.Errorf("fetch token %s: %w", address.Hex(), err)
	}

	r.mu.Lock()
	r.tokens[address] = token
	r.mu.Unlock()

	r.logger.Debug("token resolved from chain",
		zap.String("token", address.Hex()),
		zap.String("symbol", token.Symbol),
		zap.Uint8("decimals", token.Decimals),
	)
	return token, nil
}
