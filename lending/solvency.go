package lending

import (
	"math/big"

	"whirlpool/core/fixedmath"
	"whirlpool/crypto"
)

// normalizePrice rescales an oracle quote to Mantissa decimals, per spec.md
// §4.7: price = oracle.price * MANTISSA / 10^oracle.decimals. DNR is
// hardcoded to one (its price never floats).
func normalizePrice(key MarketKey, oraclePrice *big.Int, oracleDecimals uint8) *big.Int {
	if key == DNRMarketKey {
		return fixedmath.One()
	}
	scale := decimalsFactor(oracleDecimals)
	return fixedmath.FDiv(oraclePrice, scale)
}

// isUserSolvent implements spec.md §4.7, fetching the user's persisted
// markets_in set. Callers that register modifiedKey into markets_in as
// part of the same action (borrow/withdraw, spec.md §4.5 step 2) must use
// isUserSolventWithMarkets instead, passing their own not-yet-persisted
// copy, so the hypothetical delta on a market entered for the first time in
// this very call is not silently skipped.
func (e *Engine) isUserSolvent(modifiedKey MarketKey, user crypto.Address, withdrawCoinValue, borrowCoinValue Amount) (bool, error) {
	marketsIn, err := e.ensureMarketsIn(user)
	if err != nil {
		return false, err
	}
	return e.isUserSolventWithMarkets(modifiedKey, user, withdrawCoinValue, borrowCoinValue, marketsIn)
}

// isUserSolventWithMarkets is the shared implementation: for every market in
// marketsIn, lazily accrue, compute collateral/borrow balances (substituting
// the hypothetical withdraw/borrow deltas on the modified key), and compare
// LTV-weighted collateral value against borrow value. Equality counts as
// insolvent (strict >), per spec.md §9's preserved Open Question.
func (e *Engine) isUserSolventWithMarkets(modifiedKey MarketKey, user crypto.Address, withdrawCoinValue, borrowCoinValue Amount, marketsIn map[MarketKey]struct{}) (bool, error) {
	if withdrawCoinValue == nil {
		withdrawCoinValue = big.NewInt(0)
	}
	if borrowCoinValue == nil {
		borrowCoinValue = big.NewInt(0)
	}

	collateralUSD := big.NewInt(0)
	borrowUSD := big.NewInt(0)

	for key := range marketsIn {
		market, err := e.getMarket(key)
		if err != nil {
			return false, err
		}
		if market.AccruedTick < e.tick {
			meta, err := e.globalMeta()
			if err != nil {
				return false, err
			}
			rate := e.resolveBorrowRate(key, market)
			e.accrueMarket(key, market, rate, meta)
			if err := e.state.PutMarket(key, market); err != nil {
				return false, err
			}
		}

		account, err := e.ensureAccount(key, user)
		if err != nil {
			return false, err
		}

		colBalance := market.CollateralRebase.ToElastic(account.Shares, false)
		borrowBalance := market.LoanRebase.ToElastic(account.Principal, true)

		if key == modifiedKey {
			colBalance = new(big.Int).Sub(colBalance, withdrawCoinValue)
			borrowBalance = new(big.Int).Add(borrowBalance, borrowCoinValue)
		}

		price, err := e.fetchPrice(key)
		if err != nil {
			return false, err
		}

		collateralValue := fixedmath.FMul(fixedmath.FMul(colBalance, price), market.LTV)
		borrowValue := fixedmath.FMul(borrowBalance, price)

		collateralUSD.Add(collateralUSD, collateralValue)
		borrowUSD.Add(borrowUSD, borrowValue)
	}

	return collateralUSD.Cmp(borrowUSD) > 0, nil
}
