package lending

import (
	"math/big"

	"whirlpool/core/fixedmath"
)

// TicksPerYear is the fixed divisor applied to per-year rate inputs at
// admission time (spec.md §4.3: "per-year inputs are divided by a fixed
// constant at admission"). The teacher's own interest model (native/lending
// /interest.go) instead divides per-block APRs by blocksPerYear at accrual
// time; this port moves the division to admission so the stored curve is
// already in per-tick units, matching spec.md's phrasing exactly.
const TicksPerYear uint64 = 31_536_000

// RateCurve is a per-market jump-rate curve expressed in per-tick,
// Mantissa-scaled fractions.
type RateCurve struct {
	BasePerTick           Fraction
	MultiplierPerTick      Fraction
	JumpMultiplierPerTick Fraction
	Kink                  Fraction
}

// clone returns a deep copy of the curve.
func (c RateCurve) clone() RateCurve {
	return RateCurve{
		BasePerTick:           cloneAmount(c.BasePerTick),
		MultiplierPerTick:     cloneAmount(c.MultiplierPerTick),
		JumpMultiplierPerTick: cloneAmount(c.JumpMultiplierPerTick),
		Kink:                  cloneAmount(c.Kink),
	}
}

// NewRateCurve derives a per-tick curve from per-year inputs, dividing each
// by TicksPerYear (floor), per spec.md §4.3.
func NewRateCurve(params InterestRateParams) RateCurve {
	ticksPerYear := new(big.Int).SetUint64(TicksPerYear)
	perTick := func(perYear *big.Int) *big.Int {
		if perYear == nil {
			return big.NewInt(0)
		}
		return new(big.Int).Quo(perYear, ticksPerYear)
	}
	return RateCurve{
		BasePerTick:           perTick(params.BaseRatePerYear),
		MultiplierPerTick:     perTick(params.MultiplierPerYear),
		JumpMultiplierPerTick: perTick(params.JumpMultiplierPerYear),
		Kink:                  cloneAmount(params.Kink),
	}
}

// InterestRateModel is the per-market jump-rate lookup table described in
// spec.md §4.3. Markets are admitted (and given a curve) by create_market /
// set_interest_rate_data; a lookup of a market that has none is a fatal
// invariant violation, matching the teacher's own "markets are created
// before any rate query" assumption.
type InterestRateModel struct {
	curves map[MarketKey]RateCurve
}

// NewInterestRateModel constructs an empty rate-curve table.
func NewInterestRateModel() *InterestRateModel {
	return &InterestRateModel{curves: make(map[MarketKey]RateCurve)}
}

// SetCurve installs or replaces the curve for key.
func (m *InterestRateModel) SetCurve(key MarketKey, curve RateCurve) {
	m.curves[key] = curve.clone()
}

// Curve returns the curve registered for key.
func (m *InterestRateModel) Curve(key MarketKey) (RateCurve, bool) {
	curve, ok := m.curves[key]
	if !ok {
		return RateCurve{}, false
	}
	return curve.clone(), true
}

// Utilization computes borrows / (cash + borrows - reserves), or zero when
// borrows is zero.
func Utilization(cash, borrows, reserves Amount) Fraction {
	if borrows == nil || borrows.Sign() == 0 {
		return big.NewInt(0)
	}
	denominator := new(big.Int).Add(cash, borrows)
	denominator.Sub(denominator, reserves)
	return fixedmath.FDiv(borrows, denominator)
}

// BorrowRatePerTick implements spec.md §4.3's kinked curve.
func (m *InterestRateModel) BorrowRatePerTick(key MarketKey, cash, borrows, reserves Amount) Fraction {
	curve, ok := m.curves[key]
	if !ok {
		panic("lending: interest rate model has no curve for market " + string(key))
	}
	utilization := Utilization(cash, borrows, reserves)
	if utilization.Cmp(curve.Kink) <= 0 {
		rate := fixedmath.FMul(utilization, curve.MultiplierPerTick)
		return rate.Add(rate, curve.BasePerTick)
	}
	atKink := fixedmath.FMul(curve.Kink, curve.MultiplierPerTick)
	excess := new(big.Int).Sub(utilization, curve.Kink)
	beyond := fixedmath.FMul(excess, curve.JumpMultiplierPerTick)
	rate := new(big.Int).Add(atKink, curve.BasePerTick)
	return rate.Add(rate, beyond)
}

// SupplyRatePerTick implements spec.md §4.3's supply-rate derivation.
func (m *InterestRateModel) SupplyRatePerTick(key MarketKey, cash, borrows, reserves Amount, reserveFactor Fraction) Fraction {
	utilization := Utilization(cash, borrows, reserves)
	borrowRate := m.BorrowRatePerTick(key, cash, borrows, reserves)
	oneMinusReserve := new(big.Int).Sub(fixedmath.One(), reserveFactor)
	return fixedmath.FMul(utilization, fixedmath.FMul(borrowRate, oneMinusReserve))
}
