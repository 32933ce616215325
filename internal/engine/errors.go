package engine

import (
	"errors"
	"fmt"
	"math/big"
)

// Engine errors. Every mutating operation returns one of these (possibly
// wrapped) so callers can tell an insufficient balance from a solvency
// violation from a stale price feed.
var (
	// Validation errors
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrTokenNotRegistered = errors.New("collateral token not registered")
	ErrMismatchedRegistry = errors.New("token and price feed lists differ in length")
	ErrDuplicateToken     = errors.New("collateral token registered twice")

	// External call errors
	ErrTransferFailed = errors.New("token transfer failed")
	ErrMintFailed     = errors.New("stablecoin mint failed")

	// Ledger errors
	ErrInsufficientCollateral = errors.New("insufficient collateral deposited")
	ErrInsufficientDebt       = errors.New("burn exceeds minted debt")

	// Liquidation errors
	ErrPositionHealthy        = errors.New("cannot liquidate a healthy position")
	ErrLiquidationIneffective = errors.New("liquidation did not improve the position")

	// Concurrency errors
	ErrReentrantCall = errors.New("reentrant call rejected")

	// ErrHealthFactorViolation matches any HealthFactorError via errors.Is.
	ErrHealthFactorViolation = errors.New("health factor below minimum")
)

// HealthFactorError reports a broken post-condition together with the
// factor that was computed for the offending account.
type HealthFactorError struct {
	Account string
	Factor  *big.Int
}

func (e *HealthFactorError) Error() string {
	return fmt.Sprintf("health factor violation for %s: %s", e.Account, e.Factor)
}

// Is makes errors.Is(err, ErrHealthFactorViolation) succeed.
func (e *HealthFactorError) Is(target error) bool {
	return target == ErrHealthFactorViolation
}
