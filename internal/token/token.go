package token

import (
	"errors"
	"math/big"
	"sync"
)

// Common token errors
var (
	ErrInsufficientFunds = errors.New("insufficient token balance")
	ErrInvalidAmount     = errors.New("invalid token amount")
	ErrUnauthorizedMint  = errors.New("minter not authorized")
)

// Token is the transfer capability the engine requires from every
// registered collateral asset. A false return and a non-nil error are
// treated identically by callers: the transfer did not happen.
type Token interface {
	Symbol() string
	Transfer(from, to string, amount *big.Int) (bool, error)
	BalanceOf(account string) *big.Int
}

// StableCoin is the pegged currency contract. The engine is its sole
// authorized minter; restriction is enforced by the implementation's
// minter registration, not by the engine.
type StableCoin interface {
	Token
	Mint(to string, amount *big.Int) (bool, error)
	Burn(from string, amount *big.Int) error
	TotalSupply() *big.Int
}

// TransferHook runs before a transfer is applied. Returning an error
// aborts the transfer. Used by tests to inject failures and reentrant
// callbacks. Hooks must not call engine queries: the engine holds its
// write lock across the transfer and the read would deadlock.
type TransferHook func(from, to string, amount *big.Int) error

// MemoryToken is an in-memory fungible token keyed by opaque account
// identifiers. It backs the demo node and the test suite.
type MemoryToken struct {
	mu       sync.Mutex
	symbol   string
	balances map[string]*big.Int
	supply   *big.Int
	hook     TransferHook
}

// NewMemoryToken creates an empty in-memory token.
func NewMemoryToken(symbol string) *MemoryToken {
	return &MemoryToken{
		symbol:   symbol,
		balances: make(map[string]*big.Int),
		supply:   new(big.Int),
	}
}

// Symbol returns the token identifier.
func (t *MemoryToken) Symbol() string {
	return t.symbol
}

// SetTransferHook installs a hook invoked before every transfer.
func (t *MemoryToken) SetTransferHook(hook TransferHook) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hook = hook
}

// Credit adds balance out of thin air. Test and deployment seeding only.
func (t *MemoryToken) Credit(account string, amount *big.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.credit(account, amount)
}

func (t *MemoryToken) credit(account string, amount *big.Int) {
	bal, ok := t.balances[account]
	if !ok {
		bal = new(big.Int)
		t.balances[account] = bal
	}
	bal.Add(bal, amount)
	t.supply.Add(t.supply, amount)
}

func (t *MemoryToken) debit(account string, amount *big.Int) error {
	bal, ok := t.balances[account]
	if !ok || bal.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	bal.Sub(bal, amount)
	t.supply.Sub(t.supply, amount)
	return nil
}

// Transfer moves amount from one account to another. The hook, if any,
// runs before balances change and may veto the transfer.
func (t *MemoryToken) Transfer(from, to string, amount *big.Int) (bool, error) {
	if amount == nil || amount.Sign() <= 0 {
		return false, ErrInvalidAmount
	}

	t.mu.Lock()
	hook := t.hook
	t.mu.Unlock()

	// Hooks run unlocked so a reentrant callback cannot deadlock on the
	// token mutex; the engine's own guard is what must stop it.
	if hook != nil {
		if err := hook(from, to, amount); err != nil {
			return false, err
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.debit(from, amount); err != nil {
		return false, err
	}
	// debit/credit both touch supply; net zero for a transfer
	t.credit(to, amount)
	return true, nil
}

// BalanceOf returns a copy of the account balance, zero if absent.
func (t *MemoryToken) BalanceOf(account string) *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if bal, ok := t.balances[account]; ok {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}

// TotalSupply returns a copy of the current supply.
func (t *MemoryToken) TotalSupply() *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return new(big.Int).Set(t.supply)
}
