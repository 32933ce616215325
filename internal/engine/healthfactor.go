package engine

import "math/big"

// HealthFactor maps a position's debt and total collateral USD value to
// its scaled risk ratio:
//
//	adjusted = collateralUSD * LiquidationThreshold / LiquidationPrecision
//	factor   = adjusted * PrecisionScale / debt
//
// Zero debt means no risk and returns MaxHealthFactor. The result is
// floored; 1.0 (MinHealthFactor) is minimally solvent.
func HealthFactor(debt, collateralUSD *big.Int) *big.Int {
	if debt == nil || debt.Sign() == 0 {
		return new(big.Int).Set(MaxHealthFactor)
	}

	adjusted := new(big.Int).Mul(collateralUSD, big.NewInt(LiquidationThreshold))
	adjusted.Div(adjusted, big.NewInt(LiquidationPrecision))

	factor := adjusted.Mul(adjusted, PrecisionScale)
	return factor.Div(factor, debt)
}
