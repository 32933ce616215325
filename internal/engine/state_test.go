package engine

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateJournalRevert(t *testing.T) {
	t.Parallel()
	s := NewState()

	s.addCollateral("alice", "WETH", units(10))
	s.addDebt("alice", units(100))
	mark := s.snapshot()

	s.addCollateral("alice", "WETH", units(5))
	require.NoError(t, s.subDebt("alice", units(30)))
	s.addDebt("bob", units(7))

	s.revertTo(mark)

	assert.Equal(t, units(10), s.Collateral("alice", "WETH"))
	assert.Equal(t, units(100), s.Debt("alice"))
	assert.Equal(t, int64(0), s.Debt("bob").Int64())
}

func TestStateJournalCommit(t *testing.T) {
	t.Parallel()
	s := NewState()

	mark := s.snapshot()
	s.addCollateral("alice", "WETH", units(10))
	s.commit(mark)

	// committed mutations survive a later revert to the same mark
	s.revertTo(mark)
	assert.Equal(t, units(10), s.Collateral("alice", "WETH"))
}

func TestStateUnderflowRejected(t *testing.T) {
	t.Parallel()
	s := NewState()

	s.addCollateral("alice", "WETH", units(2))
	s.addDebt("alice", units(5))

	assert.ErrorIs(t, s.subCollateral("alice", "WETH", units(3)), ErrInsufficientCollateral)
	assert.ErrorIs(t, s.subCollateral("alice", "WBTC", units(1)), ErrInsufficientCollateral)
	assert.ErrorIs(t, s.subCollateral("bob", "WETH", units(1)), ErrInsufficientCollateral)
	assert.ErrorIs(t, s.subDebt("alice", units(6)), ErrInsufficientDebt)
	assert.ErrorIs(t, s.subDebt("bob", units(1)), ErrInsufficientDebt)

	// failed subtractions touch nothing
	assert.Equal(t, units(2), s.Collateral("alice", "WETH"))
	assert.Equal(t, units(5), s.Debt("alice"))

	// draining to exactly zero is a valid terminal state
	require.NoError(t, s.subCollateral("alice", "WETH", units(2)))
	require.NoError(t, s.subDebt("alice", units(5)))
	assert.Equal(t, int64(0), s.Collateral("alice", "WETH").Int64())
	assert.Equal(t, int64(0), s.Debt("alice").Int64())
}

func TestStateAccounts(t *testing.T) {
	t.Parallel()
	s := NewState()

	s.addCollateral("alice", "WETH", units(1))
	s.addDebt("bob", units(1))
	s.addCollateral("carol", "WETH", units(1))
	s.addDebt("carol", units(1))

	accounts := s.Accounts()
	assert.ElementsMatch(t, []string{"alice", "bob", "carol"}, accounts)
}

func TestStateReadsCopy(t *testing.T) {
	t.Parallel()
	s := NewState()

	s.addCollateral("alice", "WETH", units(3))
	got := s.Collateral("alice", "WETH")
	got.Add(got, big.NewInt(1))
	assert.Equal(t, units(3), s.Collateral("alice", "WETH"))
}

func TestHealthFactor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		debt          *big.Int
		collateralUSD *big.Int
		want          *big.Int
	}{
		{"zero debt is riskless", big.NewInt(0), units(1000), MaxHealthFactor},
		{"nil debt is riskless", nil, units(1000), MaxHealthFactor},
		{"200% collateral is exactly 1.0", units(100), units(200), MinHealthFactor},
		{"10 units at 2000 against 100 debt", units(100), units(20000), units(100)},
		{"undercollateralized", units(100), units(180), mustBig(t, "900000000000000000")},
		{"no collateral", units(100), big.NewInt(0), big.NewInt(0)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, HealthFactor(tt.debt, tt.collateralUSD))
		})
	}
}

func TestHealthFactorFloors(t *testing.T) {
	t.Parallel()

	// 199.999...% collateralization floors strictly below 1.0
	collateral := new(big.Int).Sub(units(200), big.NewInt(1))
	factor := HealthFactor(units(100), collateral)
	assert.True(t, factor.Cmp(MinHealthFactor) < 0)
}
