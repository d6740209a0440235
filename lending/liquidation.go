package lending

import (
	"math/big"

	"whirlpool/core/fixedmath"
	"whirlpool/crypto"
)

// Liquidate implements liquidate<C, L>(coins, borrower): repay a borrower's
// non-DNR debt and seize collateral from a non-DNR collateral market.
func (e *Engine) Liquidate(liquidator, borrower crypto.Address, collateralKey, loanKey MarketKey, assetValue Amount) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if loanKey == DNRMarketKey {
		return nil, ErrCanNotUseDNR
	}
	return e.liquidate(liquidator, borrower, collateralKey, loanKey, assetValue, false)
}

// LiquidateDNR implements liquidate_dnr<C>(coins, borrower): the loan side
// is always DNR, repaid by burning rather than crediting a vault.
func (e *Engine) LiquidateDNR(liquidator, borrower crypto.Address, collateralKey MarketKey, assetValue Amount) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.liquidate(liquidator, borrower, collateralKey, DNRMarketKey, assetValue, true)
}

func (e *Engine) liquidate(liquidator, borrower crypto.Address, collateralKey, loanKey MarketKey, assetValue Amount, isDNR bool) (*big.Int, error) {
	if err := e.requireState(); err != nil {
		return nil, err
	}
	if err := e.guard(); err != nil {
		return nil, err
	}
	if collateralKey == DNRMarketKey {
		return nil, ErrCanNotUseDNR
	}
	if liquidator.Key() == borrower.Key() {
		return nil, ErrLiquidatorIsBorrower
	}
	if assetValue == nil || assetValue.Sign() <= 0 {
		return nil, ErrZeroLiquidationAmount
	}

	// Step 1: accrue both markets.
	collateralMarket, err := e.accrueAndPersist(collateralKey)
	if err != nil {
		return nil, err
	}
	loanMarket, err := e.accrueAndPersist(loanKey)
	if err != nil {
		return nil, err
	}

	borrowerCollateral, err := e.state.GetAccount(collateralKey, borrower)
	if err != nil {
		return nil, err
	}
	if borrowerCollateral == nil {
		return nil, ErrAccountCollateralDoesNotExist
	}
	borrowerLoan, err := e.state.GetAccount(loanKey, borrower)
	if err != nil {
		return nil, err
	}
	if borrowerLoan == nil {
		return nil, ErrAccountLoanDoesNotExist
	}

	solvent, err := e.isUserSolvent("", borrower, big.NewInt(0), big.NewInt(0))
	if err != nil {
		return nil, err
	}
	if solvent {
		return nil, ErrUserIsSolvent
	}

	// Step 2: init the liquidator's collateral-market account.
	liquidatorCollateral, err := e.ensureAccount(collateralKey, liquidator)
	if err != nil {
		return nil, err
	}

	// Step 3-4: compute debt, repay amount, and refund any excess supplied.
	debt := loanMarket.LoanRebase.ToElastic(borrowerLoan.Principal, true)
	repay := assetValue
	if repay.Cmp(debt) > 0 {
		repay = debt
	}
	if repay.Sign() <= 0 {
		return nil, ErrZeroLiquidationAmount
	}

	// Step 5: settle the repay leg.
	if isDNR {
		if err := e.dnr.Burn(liquidator, repay); err != nil {
			return nil, err
		}
	} else {
		loanMarket.BalanceValue = new(big.Int).Add(loanMarket.BalanceValue, repay)
		vaultBalance, err := e.state.GetVaultBalance(loanKey)
		if err != nil {
			return nil, err
		}
		vaultBalance = new(big.Int).Add(vaultBalance, repay)
		if err := e.state.PutVaultBalance(loanKey, vaultBalance); err != nil {
			return nil, err
		}
	}

	// Step 6: base-side repay amount, computed before the mutating SubBase.
	baseRepay := loanMarket.LoanRebase.ToBase(repay, true)

	// Step 7: snapshot the borrower's loan-side reward pending pre-mutation.
	rewardPending := pendingLoanReward(loanMarket, borrowerLoan)

	// Step 8: reduce the borrower's principal and the loan rebase.
	principalReduction := baseRepay
	if principalReduction.Cmp(borrowerLoan.Principal) > 0 {
		principalReduction = borrowerLoan.Principal
	}
	borrowerLoan.Principal = new(big.Int).Sub(borrowerLoan.Principal, principalReduction)
	syncLoanRewardsPaid(loanMarket, borrowerLoan)
	loanMarket.LoanRebase.SubBase(baseRepay, false)

	// Step 9-10: price both assets and compute the seize amount.
	collateralPrice, err := e.fetchPrice(collateralKey)
	if err != nil {
		return nil, err
	}

	var seize *big.Int
	if isDNR {
		seize = fixedmath.FDiv(repay, collateralPrice)
	} else {
		loanPrice, err := e.fetchPrice(loanKey)
		if err != nil {
			return nil, err
		}
		seize = fixedmath.FDiv(fixedmath.FMul(loanPrice, repay), collateralPrice)
	}

	// Step 11-12: penalty and protocol/liquidator split.
	liquidationParams, err := e.state.GetLiquidation(collateralKey)
	if err != nil {
		return nil, err
	}
	if liquidationParams == nil {
		return nil, ErrNilMarket
	}
	penaltyAmount := fixedmath.FMul(seize, liquidationParams.PenaltyFee)
	seizeTotal := new(big.Int).Add(seize, penaltyAmount)
	protocolAmount := fixedmath.FMul(penaltyAmount, liquidationParams.ProtocolPercentage)
	liquidatorAmount := new(big.Int).Sub(seizeTotal, protocolAmount)

	// Step 13: fold in the borrower's pre-mutation collateral-side pending.
	rewardPending = new(big.Int).Add(rewardPending, pendingCollateralReward(collateralMarket, borrowerCollateral))

	// Step 14: seize shares from the borrower.
	seizeShares := collateralMarket.CollateralRebase.ToBase(seizeTotal, true)
	if seizeShares.Cmp(borrowerCollateral.Shares) > 0 {
		seizeShares = borrowerCollateral.Shares
	}
	borrowerCollateral.Shares = new(big.Int).Sub(borrowerCollateral.Shares, seizeShares)
	syncCollateralRewardsPaid(collateralMarket, borrowerCollateral)

	// Step 15: credit shares to the liquidator.
	liquidatorShares := collateralMarket.CollateralRebase.ToBase(liquidatorAmount, false)
	liquidatorCollateral.Shares = new(big.Int).Add(liquidatorCollateral.Shares, liquidatorShares)
	syncCollateralRewardsPaid(collateralMarket, liquidatorCollateral)

	// Step 16: route the protocol's cut to reserves.
	collateralMarket.TotalReserves = new(big.Int).Add(collateralMarket.TotalReserves, protocolAmount)

	if err := e.state.PutMarket(collateralKey, collateralMarket); err != nil {
		return nil, err
	}
	if err := e.state.PutMarket(loanKey, loanMarket); err != nil {
		return nil, err
	}
	if err := e.state.PutAccount(collateralKey, borrower, borrowerCollateral); err != nil {
		return nil, err
	}
	if err := e.state.PutAccount(loanKey, borrower, borrowerLoan); err != nil {
		return nil, err
	}
	if err := e.state.PutAccount(collateralKey, liquidator, liquidatorCollateral); err != nil {
		return nil, err
	}

	// Step 17: mint the accumulated reward pending as IPX to the borrower.
	if _, err := e.mintReward(borrower, rewardPending); err != nil {
		return nil, err
	}

	return liquidatorAmount, nil
}

// fetchPrice resolves key's normalized oracle price, hardcoding DNR's own
// price to one rather than querying the oracle for it.
func (e *Engine) fetchPrice(key MarketKey) (*big.Int, error) {
	if key == DNRMarketKey {
		return fixedmath.One(), nil
	}
	oraclePrice, oracleDecimals, err := e.oracle.GetPrice(string(key))
	if err != nil {
		return nil, err
	}
	price := normalizePrice(key, oraclePrice, oracleDecimals)
	if price.Sign() == 0 {
		return nil, ErrZeroOraclePrice
	}
	return price, nil
}
