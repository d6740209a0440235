package lending

import "math/big"

// Protocol-wide constants (spec.md §6 Constants). These are compiled-in,
// not configuration: spec.md treats them as protocol constants rather than
// governance-adjustable values, so SPEC_FULL.md's service config layer does
// not expose knobs for them.
var (
	// MantissaBig is the fixed-point scale shared with core/fixedmath.
	MantissaBig = big.NewInt(1_000_000_000)

	// InitialReserveFactor is the default reserve factor a market is
	// created with: 0.2 * MANTISSA.
	InitialReserveFactor = big.NewInt(200_000_000)

	// InitialRewardsPerTick is the default global reward emission:
	// 100 * 10^11 per tick.
	InitialRewardsPerTick = new(big.Int).Mul(big.NewInt(100), big.NewInt(100_000_000_000))

	// AdminParameterCeiling bounds penalty fee, protocol percentage and
	// reserve factor at 0.025 * MANTISSA. Named TWENTY_FIVE_PER_CENT in the
	// distilled source despite the 2.5% value — see DESIGN.md's Open
	// Question note; preserved verbatim, not "fixed".
	AdminParameterCeiling = big.NewInt(25_000_000)
)

// MarketConfig carries the admission parameters supplied to create_market.
// The toml tags mirror the teacher's native/lending/config.go convention of
// tagging domain config structs for the TOML-seeded market table
// (services/coreengine loads these at startup; see SPEC_FULL.md §4.10).
type MarketConfig struct {
	BorrowCap        *big.Int `toml:"borrow_cap"`
	CollateralCap    *big.Int `toml:"collateral_cap"`
	LTV              *big.Int `toml:"ltv"`
	AllocationPoints *big.Int `toml:"allocation_points"`
	PenaltyFee       *big.Int `toml:"penalty_fee"`
	ProtocolPct      *big.Int `toml:"protocol_percentage"`
	Decimals         uint8    `toml:"decimals"`
}

// InterestRateParams carries a jump-rate curve's per-year inputs, as
// supplied to set_interest_rate_data. TicksPerYear converts the per-year
// inputs to per-tick rates at admission time, per spec.md §4.3.
type InterestRateParams struct {
	BaseRatePerYear         *big.Int `toml:"base_rate_per_year"`
	MultiplierPerYear       *big.Int `toml:"multiplier_per_year"`
	JumpMultiplierPerYear   *big.Int `toml:"jump_multiplier_per_year"`
	Kink                    *big.Int `toml:"kink"`
}

// decimalsFactor returns 10^decimals as an Amount.
func decimalsFactor(decimals uint8) *big.Int {
	factor := big.NewInt(1)
	ten := big.NewInt(10)
	for i := uint8(0); i < decimals; i++ {
		factor.Mul(factor, ten)
	}
	return factor
}
