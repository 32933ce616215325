package engine

import "math/big"

// Protocol parameters. Percentages are whole numbers over
// LiquidationPrecision; fixed-point values use PrecisionScale.
const (
	// LiquidationThreshold of 50% means debt must be backed by at least
	// 200% of its value in collateral.
	LiquidationThreshold = 50
	LiquidationPrecision = 100

	// LiquidationBonus is the premium, in percent of the seized base
	// amount, paid to a liquidator.
	LiquidationBonus = 10

	// VaultAccount is the ledger identity holding tokens in custody.
	VaultAccount = "stablemint:vault"
)

var (
	// PrecisionScale is the 18-decimal fixed-point scale of all ledger
	// amounts, USD values, and health factors.
	PrecisionScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

	// MinHealthFactor is 1.0 in PrecisionScale units. Positions at or
	// above it are solvent.
	MinHealthFactor = new(big.Int).Set(PrecisionScale)

	// MaxHealthFactor is the value reported for accounts with zero debt.
	MaxHealthFactor = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
)

// Constants is the read-only protocol parameter set exposed by the query
// surface. All big values are rendered as decimal strings.
type Constants struct {
	LiquidationThreshold int    `json:"liquidation_threshold"`
	LiquidationPrecision int    `json:"liquidation_precision"`
	LiquidationBonus     int    `json:"liquidation_bonus"`
	PrecisionScale       string `json:"precision_scale"`
	MinHealthFactor      string `json:"min_health_factor"`
}

// ProtocolConstants returns the protocol parameter set.
func ProtocolConstants() Constants {
	return Constants{
		LiquidationThreshold: LiquidationThreshold,
		LiquidationPrecision: LiquidationPrecision,
		LiquidationBonus:     LiquidationBonus,
		PrecisionScale:       PrecisionScale.String(),
		MinHealthFactor:      MinHealthFactor.String(),
	}
}
