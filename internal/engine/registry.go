package engine

import (
	"github.com/stablemint/stablemint/internal/oracle"
	"github.com/stablemint/stablemint/internal/token"
)

// collateralEntry pairs a registered collateral token with its price feed.
type collateralEntry struct {
	token token.Token
	feed  oracle.PriceFeed
}

// CollateralRegistry is the immutable set of accepted collateral assets,
// fixed at construction. Iteration over Symbols is in registration order
// so valuation is deterministic.
type CollateralRegistry struct {
	symbols []string
	entries map[string]collateralEntry
}

// NewCollateralRegistry builds a registry from parallel token and feed
// lists. The lists must be the same non-zero length, every feed must be
// non-nil, and symbols must be unique.
func NewCollateralRegistry(tokens []token.Token, feeds []oracle.PriceFeed) (*CollateralRegistry, error) {
	if len(tokens) != len(feeds) || len(tokens) == 0 {
		return nil, ErrMismatchedRegistry
	}

	registry := &CollateralRegistry{
		symbols: make([]string, 0, len(tokens)),
		entries: make(map[string]collateralEntry, len(tokens)),
	}
	for i, tok := range tokens {
		if tok == nil || feeds[i] == nil {
			return nil, ErrMismatchedRegistry
		}
		symbol := tok.Symbol()
		if _, exists := registry.entries[symbol]; exists {
			return nil, ErrDuplicateToken
		}
		registry.symbols = append(registry.symbols, symbol)
		registry.entries[symbol] = collateralEntry{token: tok, feed: feeds[i]}
	}
	return registry, nil
}

// Symbols returns the registered token identifiers in registration order.
func (r *CollateralRegistry) Symbols() []string {
	out := make([]string, len(r.symbols))
	copy(out, r.symbols)
	return out
}

// entry looks up a registered token.
func (r *CollateralRegistry) entry(symbol string) (collateralEntry, bool) {
	e, ok := r.entries[symbol]
	return e, ok
}
