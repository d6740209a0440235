// Package fixedmath implements the fixed-point arithmetic used throughout
// the lending engine. Every value is scaled by Mantissa; callers that need
// to round up do so explicitly at the call site rather than inside fmul/fdiv,
// which always floor-truncate.
package fixedmath

import "math/big"

// Mantissa is the fixed-point scale applied to every Fraction, Price, and
// per-share reward accumulator in the engine.
const Mantissa = 1_000_000_000

// mantissaBig is the widened form of Mantissa used in every multiplication.
var mantissaBig = big.NewInt(Mantissa)

// One returns the Mantissa-scaled representation of 1.0.
func One() *big.Int {
	return new(big.Int).Set(mantissaBig)
}

// FMul computes a*b/Mantissa using widened big.Int arithmetic and floors the
// result. Both a and b are expected to carry at most one Mantissa scaling
// factor between them; callers multiplying two Mantissa-scaled fractions
// get back a Mantissa-scaled fraction.
func FMul(a, b *big.Int) *big.Int {
	if a == nil || b == nil {
		return big.NewInt(0)
	}
	product := new(big.Int).Mul(a, b)
	return product.Quo(product, mantissaBig)
}

// FDiv computes a*Mantissa/b using widened big.Int arithmetic and floors the
// result. Dividing by zero returns zero rather than panicking; callers are
// expected to guard zero denominators themselves when zero is not a valid
// answer (e.g. oracle price).
func FDiv(a, b *big.Int) *big.Int {
	if a == nil || b == nil || b.Sign() == 0 {
		return big.NewInt(0)
	}
	scaled := new(big.Int).Mul(a, mantissaBig)
	return scaled.Quo(scaled, b)
}

// FMulRoundUp is FMul but rounds the quotient up instead of flooring it, for
// call sites where the protocol edge must favor the protocol. The engine's
// debt conversions round up through rebase.ToElastic/ToBase instead.
func FMulRoundUp(a, b *big.Int) *big.Int {
	if a == nil || b == nil || a.Sign() == 0 || b.Sign() == 0 {
		return big.NewInt(0)
	}
	product := new(big.Int).Mul(a, b)
	return divCeil(product, mantissaBig)
}

// FDivRoundUp is FDiv but rounds the quotient up instead of flooring it.
func FDivRoundUp(a, b *big.Int) *big.Int {
	if a == nil || b == nil || b.Sign() == 0 || a.Sign() == 0 {
		return big.NewInt(0)
	}
	scaled := new(big.Int).Mul(a, mantissaBig)
	return divCeil(scaled, b)
}

func divCeil(num, den *big.Int) *big.Int {
	quotient, remainder := new(big.Int), new(big.Int)
	quotient.QuoRem(num, den, remainder)
	if remainder.Sign() != 0 {
		quotient.Add(quotient, big.NewInt(1))
	}
	return quotient
}
