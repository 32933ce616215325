package oracle

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func big18(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func TestUsdValue(t *testing.T) {
	t.Parallel()

	// 2000 USD on an 8-decimal feed
	feed := NewStaticFeed(big.NewInt(2000e8), 8)
	adapter := NewAdapter(time.Hour)

	// 15 units at 2000 USD are worth 30000 USD
	value, err := adapter.UsdValue(feed, big18(15))
	require.NoError(t, err)
	assert.Equal(t, big18(30000), value)
}

func TestTokenAmount(t *testing.T) {
	t.Parallel()

	feed := NewStaticFeed(big.NewInt(2000e8), 8)
	adapter := NewAdapter(time.Hour)

	// 100 USD buys 0.05 units at 2000 USD
	amount, err := adapter.TokenAmount(feed, big18(100))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(5e16), amount)
}

func TestConversionRoundTrip(t *testing.T) {
	t.Parallel()

	// a price that does not divide evenly forces truncation
	feed := NewStaticFeed(big.NewInt(18e8), 8)
	adapter := NewAdapter(time.Hour)

	original := big18(100)
	amount, err := adapter.TokenAmount(feed, original)
	require.NoError(t, err)
	back, err := adapter.UsdValue(feed, amount)
	require.NoError(t, err)

	// round-tripping floors, never rounds up, and the loss is bounded by
	// one price quantum
	assert.True(t, back.Cmp(original) <= 0)
	loss := new(big.Int).Sub(original, back)
	assert.True(t, loss.Cmp(big18(1)) < 0, "loss %s too large", loss)
}

func TestConversionMonotonic(t *testing.T) {
	t.Parallel()

	feed := NewStaticFeed(big.NewInt(18e8), 8)
	adapter := NewAdapter(time.Hour)

	prevUsd := new(big.Int).Neg(big.NewInt(1))
	prevAmount := new(big.Int).Neg(big.NewInt(1))
	for n := int64(1); n <= 1000; n += 97 {
		usd, err := adapter.UsdValue(feed, big18(n))
		require.NoError(t, err)
		assert.True(t, usd.Cmp(prevUsd) > 0)
		prevUsd = usd

		amount, err := adapter.TokenAmount(feed, big18(n))
		require.NoError(t, err)
		assert.True(t, amount.Cmp(prevAmount) > 0)
		prevAmount = amount
	}
}

func TestStalePriceRejected(t *testing.T) {
	t.Parallel()

	feed := NewStaticFeed(big.NewInt(2000e8), 8)
	adapter := NewAdapter(30 * time.Minute)

	feed.SetUpdatedAt(time.Now().Add(-time.Hour))
	_, err := adapter.UsdValue(feed, big18(1))
	assert.ErrorIs(t, err, ErrStalePrice)
	_, err = adapter.TokenAmount(feed, big18(1))
	assert.ErrorIs(t, err, ErrStalePrice)

	// a fresh reading recovers
	feed.SetPrice(big.NewInt(2000e8))
	_, err = adapter.UsdValue(feed, big18(1))
	assert.NoError(t, err)
}

func TestInvalidFeeds(t *testing.T) {
	t.Parallel()

	adapter := NewAdapter(time.Hour)

	zero := NewStaticFeed(big.NewInt(1), 8)
	zero.price.SetInt64(0)
	_, err := adapter.NormalizedPrice(zero)
	assert.ErrorIs(t, err, ErrInvalidPrice)

	wide := NewStaticFeed(big.NewInt(1e8), 19)
	_, err = adapter.NormalizedPrice(wide)
	assert.ErrorIs(t, err, ErrUnsupportedFeed)
}

func TestNormalizedPriceAlignsFeedPrecision(t *testing.T) {
	t.Parallel()

	adapter := NewAdapter(time.Hour)

	tests := []struct {
		name     string
		price    *big.Int
		decimals uint8
		want     *big.Int
	}{
		{"8 decimal feed", big.NewInt(2000e8), 8, big18(2000)},
		{"18 decimal feed", big18(2000), 18, big18(2000)},
		{"0 decimal feed", big.NewInt(2000), 0, big18(2000)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := adapter.NormalizedPrice(NewStaticFeed(tt.price, tt.decimals))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultStaleness(t *testing.T) {
	t.Parallel()
	assert.Equal(t, DefaultStaleAfter, NewAdapter(0).StaleAfter())
	assert.Equal(t, time.Minute, NewAdapter(time.Minute).StaleAfter())
}
