package engine

import "math/big"

// Read-only query surface. Queries never fail for well-formed inputs:
// unknown accounts report zero balances and the zero-debt maximum health
// factor. Only a dead or stale price feed can surface an error, and only
// from the price-dependent queries.
//
// Queries take the engine read lock, which a mutating operation holds for
// writing. Token and feed collaborators therefore must not call queries
// from inside a callback: mutating re-entry fails fast on the guard, but
// query re-entry from the operation's own goroutine would deadlock.

// Debt returns the account's minted debt.
func (e *Engine) Debt(account string) *big.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Debt(account)
}

// CollateralBalance returns the account's deposit of one token.
func (e *Engine) CollateralBalance(account, tokenSymbol string) *big.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Collateral(account, tokenSymbol)
}

// CollateralValue returns the USD value of everything the account has
// deposited, summed in registration order.
func (e *Engine) CollateralValue(account string) (*big.Int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.collateralValue(account)
}

// AccountInformation returns the account's debt and total collateral
// value in one consistent read.
func (e *Engine) AccountInformation(account string) (debt, collateralUSD *big.Int, err error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	collateralUSD, err = e.collateralValue(account)
	if err != nil {
		return nil, nil, err
	}
	return e.state.Debt(account), collateralUSD, nil
}

// AccountHealthFactor returns the account's current health factor.
func (e *Engine) AccountHealthFactor(account string) (*big.Int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.healthFactor(account)
}

// RegisteredTokens returns the collateral token identifiers in
// registration order.
func (e *Engine) RegisteredTokens() []string {
	return e.registry.Symbols()
}

// UsdValue converts an amount of a registered token to USD value.
func (e *Engine) UsdValue(tokenSymbol string, amount *big.Int) (*big.Int, error) {
	entry, ok := e.registry.entry(tokenSymbol)
	if !ok {
		return nil, ErrTokenNotRegistered
	}
	return e.oracle.UsdValue(entry.feed, amount)
}

// TokenAmount converts a USD value to units of a registered token.
func (e *Engine) TokenAmount(tokenSymbol string, usdValue *big.Int) (*big.Int, error) {
	entry, ok := e.registry.entry(tokenSymbol)
	if !ok {
		return nil, ErrTokenNotRegistered
	}
	return e.oracle.TokenAmount(entry.feed, usdValue)
}

// SolvencyReport is a point-in-time view of protocol-wide backing.
// Solvency is a desired emergent property, not a transactional invariant:
// nothing in mint or liquidate enforces it, so during a fast price crash
// TotalDebt can exceed TotalCollateralUSD. This report exists so
// operators and property tests can watch for that.
type SolvencyReport struct {
	TotalCollateralUSD *big.Int
	TotalDebt          *big.Int
	Solvent            bool
}

// Solvency sums collateral value and debt across every known account.
func (e *Engine) Solvency() (*SolvencyReport, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	totalCollateral := new(big.Int)
	totalDebt := new(big.Int)
	for _, account := range e.state.Accounts() {
		value, err := e.collateralValue(account)
		if err != nil {
			return nil, err
		}
		totalCollateral.Add(totalCollateral, value)
		totalDebt.Add(totalDebt, e.state.Debt(account))
	}

	return &SolvencyReport{
		TotalCollateralUSD: totalCollateral,
		TotalDebt:          totalDebt,
		Solvent:            totalCollateral.Cmp(totalDebt) >= 0,
	}, nil
}
