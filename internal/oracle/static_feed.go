package oracle

import (
	"math/big"
	"sync"
	"time"
)

// StaticFeed is a settable in-process price feed. The demo node uses it
// to register collateral assets from configuration; tests use it to move
// prices and timestamps around.
type StaticFeed struct {
	mu        sync.RWMutex
	price     *big.Int
	decimals  uint8
	updatedAt time.Time
}

// NewStaticFeed creates a feed with the given price and precision,
// timestamped now.
func NewStaticFeed(price *big.Int, decimals uint8) *StaticFeed {
	return &StaticFeed{
		price:     new(big.Int).Set(price),
		decimals:  decimals,
		updatedAt: time.Now(),
	}
}

// LatestPrice implements PriceFeed.
func (f *StaticFeed) LatestPrice() (*big.Int, uint8, time.Time, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return new(big.Int).Set(f.price), f.decimals, f.updatedAt, nil
}

// SetPrice updates the price and refreshes the timestamp.
func (f *StaticFeed) SetPrice(price *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.price = new(big.Int).Set(price)
	f.updatedAt = time.Now()
}

// SetUpdatedAt backdates the reading without touching the price.
func (f *StaticFeed) SetUpdatedAt(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updatedAt = t
}
