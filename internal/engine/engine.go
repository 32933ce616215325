package engine

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/stablemint/stablemint/internal/oracle"
	"github.com/stablemint/stablemint/internal/token"
)

// Engine is the collateralized-debt core: it accepts registered
// collateral, mints the pegged stablecoin against its USD value, and
// liquidates under-collateralized positions. The registry is immutable
// after New; all ledger mutations are all-or-nothing and serialized by
// the reentrancy guard.
type Engine struct {
	logger   *zap.Logger
	registry *CollateralRegistry
	state    *State
	stable   token.StableCoin
	oracle   *oracle.Adapter
	events   *EventEmitter
	guard    reentrancyGuard

	// mu keeps concurrent readers off in-flight mutations so queries
	// only ever observe committed state. The guard, not mu, is what
	// rejects reentry: a reentrant call fails on the guard before it
	// can self-deadlock here.
	mu sync.RWMutex

	// undos compensates committed external calls when a later step of
	// the same operation fails; pending holds events until commit.
	// Both are scoped to the operation in flight and protected by mu.
	undos   []func()
	pending []interface{}
}

// New wires an engine from parallel collateral token and price feed
// lists, the stablecoin it is the sole minter of, and a price adapter.
func New(logger *zap.Logger, tokens []token.Token, feeds []oracle.PriceFeed, stable token.StableCoin, adapter *oracle.Adapter) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if stable == nil {
		return nil, fmt.Errorf("stablecoin token required")
	}
	if adapter == nil {
		adapter = oracle.NewAdapter(0)
	}

	registry, err := NewCollateralRegistry(tokens, feeds)
	if err != nil {
		return nil, err
	}

	return &Engine{
		logger:   logger,
		registry: registry,
		state:    NewState(),
		stable:   stable,
		oracle:   adapter,
		events:   NewEventEmitter(),
	}, nil
}

// Events returns the engine's event emitter.
func (e *Engine) Events() *EventEmitter {
	return e.events
}

// run executes op inside the reentrancy guard with all-or-nothing
// semantics: on error every ledger mutation is undone via the journal
// and every external call is compensated with its inverse (transfer
// back, re-mint, burn), newest first. Collaborators must honor inverse
// calls for rollback to be exact; the in-process tokens do. Events are
// held back until commit so a failed composite never announces its
// succeeded half.
func (e *Engine) run(op func() error) error {
	if err := e.guard.enter(); err != nil {
		return err
	}
	defer e.guard.exit()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.undos = e.undos[:0]
	e.pending = e.pending[:0]

	mark := e.state.snapshot()
	if err := op(); err != nil {
		e.state.revertTo(mark)
		for i := len(e.undos) - 1; i >= 0; i-- {
			e.undos[i]()
		}
		return err
	}
	e.state.commit(mark)

	for _, ev := range e.pending {
		e.events.Emit(ev)
	}
	return nil
}

// compensate registers the inverse of a completed external call.
func (e *Engine) compensate(undo func()) {
	e.undos = append(e.undos, undo)
}

// queueEvent defers an event until the operation commits.
func (e *Engine) queueEvent(ev interface{}) {
	e.pending = append(e.pending, ev)
}

// DepositCollateral credits the account's ledger and pulls the tokens
// into the vault. A failed transfer rolls the credit back.
func (e *Engine) DepositCollateral(account, tokenSymbol string, amount *big.Int) error {
	return e.run(func() error {
		return e.deposit(account, tokenSymbol, amount)
	})
}

func (e *Engine) deposit(account, tokenSymbol string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	entry, ok := e.registry.entry(tokenSymbol)
	if !ok {
		return ErrTokenNotRegistered
	}

	e.state.addCollateral(account, tokenSymbol, amount)

	ok, err := entry.token.Transfer(account, VaultAccount, amount)
	if err != nil || !ok {
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
		return ErrTransferFailed
	}
	e.compensate(func() { _, _ = entry.token.Transfer(VaultAccount, account, amount) })

	e.logger.Info("Collateral deposited",
		zap.String("account", account),
		zap.String("token", tokenSymbol),
		zap.String("amount", amount.String()),
	)
	e.queueEvent(EventCollateralDeposited{ID: NewEventID(), Account: account, Token: tokenSymbol, Amount: amount, Time: time.Now()})
	return nil
}

// MintDebt increases the account's debt, verifies its health factor and
// mints the stablecoin. Any failure rolls the whole operation back.
func (e *Engine) MintDebt(account string, amount *big.Int) error {
	return e.run(func() error {
		return e.mint(account, amount)
	})
}

func (e *Engine) mint(account string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	e.state.addDebt(account, amount)

	factor, err := e.healthFactor(account)
	if err != nil {
		return err
	}
	if factor.Cmp(MinHealthFactor) < 0 {
		return &HealthFactorError{Account: account, Factor: factor}
	}

	ok, err := e.stable.Mint(account, amount)
	if err != nil || !ok {
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMintFailed, err)
		}
		return ErrMintFailed
	}
	e.compensate(func() { _ = e.stable.Burn(account, amount) })

	e.logger.Info("Debt minted",
		zap.String("account", account),
		zap.String("amount", amount.String()),
	)
	e.queueEvent(EventDebtMinted{ID: NewEventID(), Account: account, Amount: amount, Time: time.Now()})
	return nil
}

// DepositAndMint deposits collateral and mints debt as one atomic unit.
func (e *Engine) DepositAndMint(account, tokenSymbol string, collateralAmount, debtAmount *big.Int) error {
	return e.run(func() error {
		if err := e.deposit(account, tokenSymbol, collateralAmount); err != nil {
			return err
		}
		return e.mint(account, debtAmount)
	})
}

// RedeemCollateral pays deposited collateral back to the account,
// requiring the account's own health factor to survive the withdrawal.
func (e *Engine) RedeemCollateral(account, tokenSymbol string, amount *big.Int) error {
	return e.run(func() error {
		if err := e.redeem(account, account, tokenSymbol, amount); err != nil {
			return err
		}
		return e.requireHealthy(account)
	})
}

// redeem is the internal primitive: decrement the ledger, then transfer
// the tokens from the vault to the recipient. Health factors are the
// public entry points' concern.
func (e *Engine) redeem(from, to, tokenSymbol string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	entry, ok := e.registry.entry(tokenSymbol)
	if !ok {
		return ErrTokenNotRegistered
	}

	if err := e.state.subCollateral(from, tokenSymbol, amount); err != nil {
		return err
	}

	ok, err := entry.token.Transfer(VaultAccount, to, amount)
	if err != nil || !ok {
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
		return ErrTransferFailed
	}
	e.compensate(func() { _, _ = entry.token.Transfer(to, VaultAccount, amount) })

	e.logger.Info("Collateral redeemed",
		zap.String("from", from),
		zap.String("to", to),
		zap.String("token", tokenSymbol),
		zap.String("amount", amount.String()),
	)
	e.queueEvent(EventCollateralRedeemed{ID: NewEventID(), From: from, To: to, Token: tokenSymbol, Amount: amount, Time: time.Now()})
	return nil
}

// BurnDebt retires debt on behalf of an account, funded by stablecoin
// pulled from the payer.
func (e *Engine) BurnDebt(onBehalfOf, payer string, amount *big.Int) error {
	return e.run(func() error {
		return e.burn(onBehalfOf, payer, amount)
	})
}

func (e *Engine) burn(onBehalfOf, payer string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	if err := e.state.subDebt(onBehalfOf, amount); err != nil {
		return err
	}

	ok, err := e.stable.Transfer(payer, VaultAccount, amount)
	if err != nil || !ok {
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
		return ErrTransferFailed
	}
	e.compensate(func() { _, _ = e.stable.Transfer(VaultAccount, payer, amount) })

	if err := e.stable.Burn(VaultAccount, amount); err != nil {
		return fmt.Errorf("%w: burn: %v", ErrTransferFailed, err)
	}
	e.compensate(func() { _, _ = e.stable.Mint(VaultAccount, amount) })

	e.logger.Info("Debt burned",
		zap.String("on_behalf_of", onBehalfOf),
		zap.String("payer", payer),
		zap.String("amount", amount.String()),
	)
	e.queueEvent(EventDebtBurned{ID: NewEventID(), OnBehalfOf: onBehalfOf, Payer: payer, Amount: amount, Time: time.Now()})
	return nil
}

// RedeemAndBurn burns debt and redeems collateral as one atomic unit.
func (e *Engine) RedeemAndBurn(account, tokenSymbol string, collateralAmount, debtAmount *big.Int) error {
	return e.run(func() error {
		if err := e.burn(account, account, debtAmount); err != nil {
			return err
		}
		if err := e.redeem(account, account, tokenSymbol, collateralAmount); err != nil {
			return err
		}
		return e.requireHealthy(account)
	})
}

// Liquidate lets any caller close out part of an under-collateralized
// position: the caller covers debtToCover of the target's debt in
// stablecoin and receives the equivalent collateral plus the liquidation
// bonus, always against a single collateral asset. The target's health
// factor must strictly improve and the caller's must stay valid, or the
// whole operation is rolled back.
func (e *Engine) Liquidate(liquidator, target, tokenSymbol string, debtToCover *big.Int) error {
	return e.run(func() error {
		if debtToCover == nil || debtToCover.Sign() <= 0 {
			return ErrInvalidAmount
		}
		entry, ok := e.registry.entry(tokenSymbol)
		if !ok {
			return ErrTokenNotRegistered
		}

		startFactor, err := e.healthFactor(target)
		if err != nil {
			return err
		}
		if startFactor.Cmp(MinHealthFactor) >= 0 {
			return ErrPositionHealthy
		}

		seizedBase, err := e.oracle.TokenAmount(entry.feed, debtToCover)
		if err != nil {
			return err
		}
		bonus := new(big.Int).Mul(seizedBase, big.NewInt(LiquidationBonus))
		bonus.Div(bonus, big.NewInt(LiquidationPrecision))
		totalSeized := new(big.Int).Add(seizedBase, bonus)

		if err := e.redeem(target, liquidator, tokenSymbol, totalSeized); err != nil {
			return err
		}
		if err := e.burn(target, liquidator, debtToCover); err != nil {
			return err
		}

		endFactor, err := e.healthFactor(target)
		if err != nil {
			return err
		}
		if endFactor.Cmp(startFactor) <= 0 {
			return ErrLiquidationIneffective
		}
		if err := e.requireHealthy(liquidator); err != nil {
			return err
		}

		e.logger.Info("Position liquidated",
			zap.String("liquidator", liquidator),
			zap.String("target", target),
			zap.String("token", tokenSymbol),
			zap.String("debt_covered", debtToCover.String()),
			zap.String("collateral_seized", totalSeized.String()),
			zap.String("health_factor_before", startFactor.String()),
			zap.String("health_factor_after", endFactor.String()),
		)
		e.queueEvent(EventLiquidation{
			ID:               NewEventID(),
			Liquidator:       liquidator,
			Target:           target,
			Token:            tokenSymbol,
			DebtCovered:      debtToCover,
			CollateralSeized: totalSeized,
			Time:             time.Now(),
		})
		return nil
	})
}

// requireHealthy fails with a HealthFactorError if the account's factor
// is below the minimum.
func (e *Engine) requireHealthy(account string) error {
	factor, err := e.healthFactor(account)
	if err != nil {
		return err
	}
	if factor.Cmp(MinHealthFactor) < 0 {
		return &HealthFactorError{Account: account, Factor: factor}
	}
	return nil
}

// healthFactor values the account's collateral at current prices and
// applies the threshold. Stale prices abort the caller.
func (e *Engine) healthFactor(account string) (*big.Int, error) {
	collateralUSD, err := e.collateralValue(account)
	if err != nil {
		return nil, err
	}
	return HealthFactor(e.state.Debt(account), collateralUSD), nil
}

// collateralValue sums the USD value of the account's deposits in
// registry order.
func (e *Engine) collateralValue(account string) (*big.Int, error) {
	total := new(big.Int)
	for _, symbol := range e.registry.symbols {
		amount := e.state.Collateral(account, symbol)
		if amount.Sign() == 0 {
			continue
		}
		entry, _ := e.registry.entry(symbol)
		value, err := e.oracle.UsdValue(entry.feed, amount)
		if err != nil {
			return nil, fmt.Errorf("value %s: %w", symbol, err)
		}
		total.Add(total, value)
	}
	return total, nil
}
