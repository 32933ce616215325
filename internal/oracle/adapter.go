package oracle

import (
	"errors"
	"fmt"
	"math/big"
	"time"
)

// Oracle errors
var (
	ErrStalePrice      = errors.New("price data is stale")
	ErrInvalidPrice    = errors.New("price must be positive")
	ErrUnsupportedFeed = errors.New("feed precision exceeds ledger scale")
)

// DefaultStaleAfter is the freshness window applied when none is configured.
// Chainlink-style feeds heartbeat at least hourly; three hours of silence
// means the feed is dead or the chain is halted.
const DefaultStaleAfter = 3 * time.Hour

// ledgerDecimals is the fixed-point scale of all ledger amounts.
const ledgerDecimals = 18

var precisionScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(ledgerDecimals), nil)

// PriceFeed reports the latest USD price of one asset.
type PriceFeed interface {
	LatestPrice() (price *big.Int, decimals uint8, updatedAt time.Time, err error)
}

// Adapter converts token amounts to and from USD value using a PriceFeed,
// rejecting readings older than the staleness window. Conversions use
// 18-decimal fixed point with floor semantics: UsdValue and TokenAmount
// are inverse only up to integer truncation.
type Adapter struct {
	staleAfter time.Duration
	now        func() time.Time
}

// NewAdapter creates an adapter with the given staleness window. A
// non-positive window falls back to DefaultStaleAfter.
func NewAdapter(staleAfter time.Duration) *Adapter {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Adapter{
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// StaleAfter returns the configured freshness window.
func (a *Adapter) StaleAfter() time.Duration {
	return a.staleAfter
}

// NormalizedPrice returns the latest price scaled to 18 decimals, or an
// error if the feed is stale, non-positive, or wider than the ledger scale.
func (a *Adapter) NormalizedPrice(feed PriceFeed) (*big.Int, error) {
	price, decimals, updatedAt, err := feed.LatestPrice()
	if err != nil {
		return nil, fmt.Errorf("latest price: %w", err)
	}
	if price == nil || price.Sign() <= 0 {
		return nil, ErrInvalidPrice
	}
	if decimals > ledgerDecimals {
		return nil, ErrUnsupportedFeed
	}
	if a.now().Sub(updatedAt) > a.staleAfter {
		return nil, fmt.Errorf("%w: updated %s ago", ErrStalePrice, a.now().Sub(updatedAt))
	}

	shift := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(ledgerDecimals-decimals)), nil)
	return new(big.Int).Mul(price, shift), nil
}

// UsdValue converts a token amount to its USD value:
// normalizedPrice * amount / 1e18, floored.
func (a *Adapter) UsdValue(feed PriceFeed, amount *big.Int) (*big.Int, error) {
	price, err := a.NormalizedPrice(feed)
	if err != nil {
		return nil, err
	}
	value := new(big.Int).Mul(price, amount)
	return value.Div(value, precisionScale), nil
}

// TokenAmount converts a USD value to token units:
// usdValue * 1e18 / normalizedPrice, floored.
func (a *Adapter) TokenAmount(feed PriceFeed, usdValue *big.Int) (*big.Int, error) {
	price, err := a.NormalizedPrice(feed)
	if err != nil {
		return nil, err
	}
	amount := new(big.Int).Mul(usdValue, precisionScale)
	return amount.Div(amount, price), nil
}
