package token

import (
	"math/big"
	"sync"
)

// StableToken is the in-memory pegged currency. Minting is restricted to
// a single registered minter identity; everything else behaves like
// MemoryToken.
type StableToken struct {
	MemoryToken
	minterMu sync.Mutex
	minter   string
	mintHook TransferHook
}

// NewStableToken creates a stablecoin with no authorized minter. Call
// AuthorizeMinter before wiring it into an engine.
func NewStableToken(symbol string) *StableToken {
	return &StableToken{
		MemoryToken: MemoryToken{
			symbol:   symbol,
			balances: make(map[string]*big.Int),
			supply:   new(big.Int),
		},
	}
}

// AuthorizeMinter registers the sole identity allowed to mint. A second
// call replaces the previous minter.
func (t *StableToken) AuthorizeMinter(minter string) {
	t.minterMu.Lock()
	defer t.minterMu.Unlock()
	t.minter = minter
}

// SetMintHook installs a hook invoked before every mint. Test use only.
func (t *StableToken) SetMintHook(hook TransferHook) {
	t.minterMu.Lock()
	defer t.minterMu.Unlock()
	t.mintHook = hook
}

// Mint creates new supply credited to the recipient. Minting is locked
// until AuthorizeMinter has run; the engine constructor registers itself
// during wiring, so only an engine-held reference can mint.
func (t *StableToken) Mint(to string, amount *big.Int) (bool, error) {
	if amount == nil || amount.Sign() <= 0 {
		return false, ErrInvalidAmount
	}

	t.minterMu.Lock()
	minter := t.minter
	hook := t.mintHook
	t.minterMu.Unlock()

	if minter == "" {
		return false, ErrUnauthorizedMint
	}

	if hook != nil {
		if err := hook("", to, amount); err != nil {
			return false, err
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.credit(to, amount)
	return true, nil
}

// Burn destroys supply held by the given account.
func (t *StableToken) Burn(from string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.debit(from, amount)
}
