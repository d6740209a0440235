// Package rebase implements the elastic/base accounting primitive that ties
// a pool of "shares" (base) to a pool of "underlying" (elastic) under
// proportional growth, as used by the lending engine's collateral and loan
// bookkeeping.
package rebase

import "math/big"

// Rebase maps a base (share) pool to an elastic (underlying) pool.
// Invariant: either both Base and Elastic are zero, or both are positive.
type Rebase struct {
	Base    *big.Int
	Elastic *big.Int
}

// New returns a zeroed Rebase.
func New() Rebase {
	return Rebase{Base: big.NewInt(0), Elastic: big.NewInt(0)}
}

func (r Rebase) normalized() (*big.Int, *big.Int) {
	base := r.Base
	if base == nil {
		base = big.NewInt(0)
	}
	elastic := r.Elastic
	if elastic == nil {
		elastic = big.NewInt(0)
	}
	return base, elastic
}

// Valid reports whether the rebase satisfies the base/elastic zero-iff-zero
// invariant (spec.md I8).
func (r Rebase) Valid() bool {
	base, elastic := r.normalized()
	return (base.Sign() == 0) == (elastic.Sign() == 0)
}

// ToBase converts an elastic amount into its base-side equivalent under the
// current ratio. roundUp controls which direction the remainder rounds.
func (r Rebase) ToBase(elasticAmount *big.Int, roundUp bool) *big.Int {
	base, elastic := r.normalized()
	if elasticAmount == nil || elasticAmount.Sign() == 0 {
		return big.NewInt(0)
	}
	if elastic.Sign() == 0 {
		return new(big.Int).Set(elasticAmount)
	}
	numerator := new(big.Int).Mul(elasticAmount, base)
	if roundUp {
		numerator.Add(numerator, new(big.Int).Sub(elastic, big.NewInt(1)))
	}
	return numerator.Quo(numerator, elastic)
}

// ToElastic converts a base amount into its elastic-side equivalent under
// the current ratio.
func (r Rebase) ToElastic(baseAmount *big.Int, roundUp bool) *big.Int {
	base, elastic := r.normalized()
	if baseAmount == nil || baseAmount.Sign() == 0 {
		return big.NewInt(0)
	}
	if base.Sign() == 0 {
		return new(big.Int).Set(baseAmount)
	}
	numerator := new(big.Int).Mul(baseAmount, elastic)
	if roundUp {
		numerator.Add(numerator, new(big.Int).Sub(base, big.NewInt(1)))
	}
	return numerator.Quo(numerator, base)
}

// AddElastic appends elasticAmount to the elastic pool and derives the
// proportional base increment, mutating r and returning the share increment
// minted. When both sides start at zero the increment is the amount itself.
func (r *Rebase) AddElastic(elasticAmount *big.Int, roundUp bool) *big.Int {
	base, elastic := r.normalized()
	if elasticAmount == nil || elasticAmount.Sign() == 0 {
		r.Base, r.Elastic = base, elastic
		return big.NewInt(0)
	}

	var baseIncrement *big.Int
	if elastic.Sign() == 0 {
		baseIncrement = new(big.Int).Set(elasticAmount)
	} else {
		numerator := new(big.Int).Mul(elasticAmount, base)
		if roundUp {
			numerator.Add(numerator, new(big.Int).Sub(elastic, big.NewInt(1)))
		}
		baseIncrement = numerator.Quo(numerator, elastic)
	}

	r.Base = new(big.Int).Add(base, baseIncrement)
	r.Elastic = new(big.Int).Add(elastic, elasticAmount)
	return baseIncrement
}

// SubBase removes baseAmount from the base pool and derives the
// proportional elastic amount removed, mutating r and returning that
// elastic amount.
func (r *Rebase) SubBase(baseAmount *big.Int, roundUp bool) *big.Int {
	base, elastic := r.normalized()
	if baseAmount == nil || baseAmount.Sign() == 0 {
		r.Base, r.Elastic = base, elastic
		return big.NewInt(0)
	}

	var elasticAmount *big.Int
	if base.Sign() == 0 {
		elasticAmount = big.NewInt(0)
	} else {
		numerator := new(big.Int).Mul(baseAmount, elastic)
		if roundUp {
			numerator.Add(numerator, new(big.Int).Sub(base, big.NewInt(1)))
		}
		elasticAmount = numerator.Quo(numerator, base)
	}

	r.Base = new(big.Int).Sub(base, baseAmount)
	r.Elastic = new(big.Int).Sub(elastic, elasticAmount)
	return elasticAmount
}

// IncreaseElastic adjusts the elastic side only, used by accrual to grow
// debt/collateral without minting or burning shares.
func (r *Rebase) IncreaseElastic(amount *big.Int) {
	_, elastic := r.normalized()
	if amount == nil || amount.Sign() == 0 {
		r.Elastic = elastic
		return
	}
	r.Elastic = new(big.Int).Add(elastic, amount)
}

// DecreaseElastic adjusts the elastic side only downward.
func (r *Rebase) DecreaseElastic(amount *big.Int) {
	_, elastic := r.normalized()
	if amount == nil || amount.Sign() == 0 {
		r.Elastic = elastic
		return
	}
	r.Elastic = new(big.Int).Sub(elastic, amount)
}

// Clone returns a deep copy of r.
func (r Rebase) Clone() Rebase {
	base, elastic := r.normalized()
	return Rebase{Base: new(big.Int).Set(base), Elastic: new(big.Int).Set(elastic)}
}
