package lending

import (
	"math/big"

	"whirlpool/core/fixedmath"
)

// accrue advances market from its last accrued tick to currentTick,
// implementing spec.md §4.4 steps 1-10. borrowRatePerTick is the rate
// already resolved by the caller (the jump-rate model for ordinary markets,
// or the constant DNR rate for the DNR market) so this function stays
// market-kind agnostic, mirroring how the teacher's accrueInterest takes an
// already-resolved APR rather than looking the model up itself.
func accrue(market *MarketData, currentTick Tick, borrowRatePerTick Fraction, rewardsPerTick, totalAllocationPoints Amount) {
	delta := currentTick - market.AccruedTick
	if delta == 0 {
		return
	}

	rate := new(big.Int).Mul(big.NewInt(0).SetUint64(delta), borrowRatePerTick)
	interest := fixedmath.FMul(rate, market.LoanRebase.Elastic)
	reserveSlice := fixedmath.FMul(interest, market.ReserveFactor)

	market.LoanRebase.IncreaseElastic(interest)

	collateralGrowth := new(big.Int).Sub(interest, reserveSlice)
	market.CollateralRebase.IncreaseElastic(collateralGrowth)

	market.TotalReserves = new(big.Int).Add(market.TotalReserves, reserveSlice)
	market.AccruedTick = currentTick

	if totalAllocationPoints == nil || totalAllocationPoints.Sign() == 0 || market.AllocationPoints == nil || market.AllocationPoints.Sign() == 0 {
		return
	}

	emitted := new(big.Int).Mul(market.AllocationPoints, big.NewInt(0).SetUint64(delta))
	emitted.Mul(emitted, rewardsPerTick)
	emitted.Quo(emitted, totalAllocationPoints)

	collateralEmitted := new(big.Int).Quo(emitted, big.NewInt(2))
	loanEmitted := new(big.Int).Sub(emitted, collateralEmitted)

	if market.CollateralRebase.Base.Sign() > 0 {
		delta := new(big.Int).Mul(collateralEmitted, market.DecimalsFactor)
		delta.Quo(delta, market.CollateralRebase.Base)
		market.AccruedCollateralRewardsPerShare = new(big.Int).Add(market.AccruedCollateralRewardsPerShare, delta)
	}
	if market.LoanRebase.Base.Sign() > 0 {
		delta := new(big.Int).Mul(loanEmitted, market.DecimalsFactor)
		delta.Quo(delta, market.LoanRebase.Base)
		market.AccruedLoanRewardsPerShare = new(big.Int).Add(market.AccruedLoanRewardsPerShare, delta)
	}
}

// pendingCollateralReward computes a user's unclaimed collateral-side
// reward against the market's current accumulator, per spec.md §4.5 step 2.
func pendingCollateralReward(market *MarketData, account *Account) *big.Int {
	if account.Shares.Sign() == 0 {
		return big.NewInt(0)
	}
	accrued := new(big.Int).Mul(account.Shares, market.AccruedCollateralRewardsPerShare)
	accrued.Quo(accrued, market.DecimalsFactor)
	return new(big.Int).Sub(accrued, account.CollateralRewardsPaid)
}

// pendingLoanReward computes a user's unclaimed loan-side reward.
func pendingLoanReward(market *MarketData, account *Account) *big.Int {
	if account.Principal.Sign() == 0 {
		return big.NewInt(0)
	}
	accrued := new(big.Int).Mul(account.Principal, market.AccruedLoanRewardsPerShare)
	accrued.Quo(accrued, market.DecimalsFactor)
	return new(big.Int).Sub(accrued, account.LoanRewardsPaid)
}

// syncCollateralRewardsPaid recomputes the collateral watermark from the
// account's post-mutation shares against the market's current accumulator.
func syncCollateralRewardsPaid(market *MarketData, account *Account) {
	watermark := new(big.Int).Mul(account.Shares, market.AccruedCollateralRewardsPerShare)
	account.CollateralRewardsPaid = watermark.Quo(watermark, market.DecimalsFactor)
}

// syncLoanRewardsPaid recomputes the loan watermark from the account's
// post-mutation principal.
func syncLoanRewardsPaid(market *MarketData, account *Account) {
	watermark := new(big.Int).Mul(account.Principal, market.AccruedLoanRewardsPerShare)
	account.LoanRewardsPaid = watermark.Quo(watermark, market.DecimalsFactor)
}
