package engine

import "math/big"

// State holds the per-account ledgers: deposited collateral by token and
// minted debt. Accounts come into existence on first touch and are never
// destroyed; zero balances are a valid terminal state.
//
// State is not safe for concurrent use on its own. The engine serializes
// every access through its reentrancy guard, so no internal locking is
// needed, and a plain undo journal is enough for atomicity.
type State struct {
	collateral map[string]map[string]*big.Int // account -> token -> amount
	debt       map[string]*big.Int            // account -> minted debt

	// journal records undo closures for every mutation since the last
	// commit. Reverting runs them newest-first.
	journal []func()
}

// NewState creates an empty state store.
func NewState() *State {
	return &State{
		collateral: make(map[string]map[string]*big.Int),
		debt:       make(map[string]*big.Int),
	}
}

// Collateral returns a copy of the account's deposit of one token.
func (s *State) Collateral(account, token string) *big.Int {
	if deposits, ok := s.collateral[account]; ok {
		if amount, ok := deposits[token]; ok {
			return new(big.Int).Set(amount)
		}
	}
	return new(big.Int)
}

// Debt returns a copy of the account's minted debt.
func (s *State) Debt(account string) *big.Int {
	if debt, ok := s.debt[account]; ok {
		return new(big.Int).Set(debt)
	}
	return new(big.Int)
}

// Accounts returns every account that has ever held a balance.
func (s *State) Accounts() []string {
	seen := make(map[string]struct{}, len(s.collateral)+len(s.debt))
	accounts := make([]string, 0, len(s.collateral)+len(s.debt))
	for account := range s.collateral {
		if _, ok := seen[account]; !ok {
			seen[account] = struct{}{}
			accounts = append(accounts, account)
		}
	}
	for account := range s.debt {
		if _, ok := seen[account]; !ok {
			seen[account] = struct{}{}
			accounts = append(accounts, account)
		}
	}
	return accounts
}

func (s *State) addCollateral(account, token string, amount *big.Int) {
	deposits, ok := s.collateral[account]
	if !ok {
		deposits = make(map[string]*big.Int)
		s.collateral[account] = deposits
	}
	current, ok := deposits[token]
	if !ok {
		current = new(big.Int)
		deposits[token] = current
	}

	prev := new(big.Int).Set(current)
	s.journal = append(s.journal, func() { current.Set(prev) })
	current.Add(current, amount)
}

func (s *State) subCollateral(account, token string, amount *big.Int) error {
	deposits, ok := s.collateral[account]
	if !ok {
		return ErrInsufficientCollateral
	}
	current, ok := deposits[token]
	if !ok || current.Cmp(amount) < 0 {
		return ErrInsufficientCollateral
	}

	prev := new(big.Int).Set(current)
	s.journal = append(s.journal, func() { current.Set(prev) })
	current.Sub(current, amount)
	return nil
}

func (s *State) addDebt(account string, amount *big.Int) {
	current, ok := s.debt[account]
	if !ok {
		current = new(big.Int)
		s.debt[account] = current
	}

	prev := new(big.Int).Set(current)
	s.journal = append(s.journal, func() { current.Set(prev) })
	current.Add(current, amount)
}

func (s *State) subDebt(account string, amount *big.Int) error {
	current, ok := s.debt[account]
	if !ok || current.Cmp(amount) < 0 {
		return ErrInsufficientDebt
	}

	prev := new(big.Int).Set(current)
	s.journal = append(s.journal, func() { current.Set(prev) })
	current.Sub(current, amount)
	return nil
}

// snapshot marks the current journal position.
func (s *State) snapshot() int {
	return len(s.journal)
}

// revertTo undoes every mutation recorded after the mark, newest first.
func (s *State) revertTo(mark int) {
	for i := len(s.journal) - 1; i >= mark; i-- {
		s.journal[i]()
	}
	s.journal = s.journal[:mark]
}

// commit keeps the mutations and drops their undo entries.
func (s *State) commit(mark int) {
	s.journal = s.journal[:mark]
}
