package lending

import (
	"math/big"

	"whirlpool/crypto"
)

// BorrowDNR implements borrow_dnr(amount) -> (Coin<DNR>, Coin<IPX>). DNR has
// no vault and no balance_value (spec.md §4.6): borrowing mints fresh DNR
// directly rather than drawing down a pool, so there is no
// NOT_ENOUGH_CASH_TO_LEND check and no collateral-cap-derived borrow cap
// gate (DNR can never be deposited as collateral) — only the pause gate and
// the solvency check apply.
func (e *Engine) BorrowDNR(user crypto.Address, amount Amount) (*big.Int, *big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(); err != nil {
		return nil, nil, err
	}
	if err := e.guard(); err != nil {
		return nil, nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, nil, ErrInvalidAmount
	}

	market, err := e.accrueAndPersist(DNRMarketKey)
	if err != nil {
		return nil, nil, err
	}
	account, err := e.ensureAccount(DNRMarketKey, user)
	if err != nil {
		return nil, nil, err
	}
	marketsIn, err := e.ensureMarketsIn(user)
	if err != nil {
		return nil, nil, err
	}
	marketsIn[DNRMarketKey] = struct{}{}

	pending := pendingLoanReward(market, account)

	deltaPrincipal := market.LoanRebase.AddElastic(amount, true)
	account.Principal = new(big.Int).Add(account.Principal, deltaPrincipal)
	syncLoanRewardsPaid(market, account)

	if market.IsPaused {
		return nil, nil, ErrMarketPaused
	}
	solvent, err := e.isUserSolventWithMarkets(DNRMarketKey, user, big.NewInt(0), amount, marketsIn)
	if err != nil {
		return nil, nil, err
	}
	if !solvent {
		return nil, nil, ErrBorrowNotAllowed
	}

	if err := e.state.PutMarket(DNRMarketKey, market); err != nil {
		return nil, nil, err
	}
	if err := e.state.PutAccount(DNRMarketKey, user, account); err != nil {
		return nil, nil, err
	}
	if err := e.state.PutMarketsIn(user, marketsIn); err != nil {
		return nil, nil, err
	}

	minted, err := e.dnr.Mint(user, amount)
	if err != nil {
		return nil, nil, err
	}
	rewards, err := e.mintReward(user, pending)
	if err != nil {
		return nil, nil, err
	}
	return minted, rewards, nil
}

// RepayDNR implements repay_dnr(coins, principal_to_repay) -> Coin<IPX>. The
// repaid coins are burned rather than credited to a vault; balance_value is
// never touched, matching spec.md §4.6. The returned refund is the portion
// of coinsValue the caller supplied but that was not needed to cover
// safe_principal (the caller keeps it unburned).
func (e *Engine) RepayDNR(user crypto.Address, coinsValue, principalToRepay Amount) (*big.Int, *big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(); err != nil {
		return nil, nil, err
	}
	if err := e.guard(); err != nil {
		return nil, nil, err
	}
	if coinsValue == nil || coinsValue.Sign() <= 0 {
		return nil, nil, ErrInvalidAmount
	}

	market, err := e.accrueAndPersist(DNRMarketKey)
	if err != nil {
		return nil, nil, err
	}
	account, err := e.ensureAccount(DNRMarketKey, user)
	if err != nil {
		return nil, nil, err
	}

	pending := pendingLoanReward(market, account)

	assetPrincipal := market.LoanRebase.ToBase(coinsValue, false)
	safePrincipal := assetPrincipal
	if safePrincipal.Cmp(account.Principal) > 0 {
		safePrincipal = account.Principal
	}
	if principalToRepay != nil && principalToRepay.Cmp(safePrincipal) < 0 {
		safePrincipal = principalToRepay
	}

	repayAmount := market.LoanRebase.ToElastic(safePrincipal, true)

	refund := big.NewInt(0)
	if coinsValue.Cmp(repayAmount) > 0 {
		refund = new(big.Int).Sub(coinsValue, repayAmount)
	}

	account.Principal = new(big.Int).Sub(account.Principal, safePrincipal)
	syncLoanRewardsPaid(market, account)

	if market.IsPaused {
		return nil, nil, ErrMarketPaused
	}

	if repayAmount.Sign() > 0 {
		if err := e.dnr.Burn(user, repayAmount); err != nil {
			return nil, nil, err
		}
	}

	if err := e.state.PutMarket(DNRMarketKey, market); err != nil {
		return nil, nil, err
	}
	if err := e.state.PutAccount(DNRMarketKey, user, account); err != nil {
		return nil, nil, err
	}

	minted, err := e.mintReward(user, pending)
	if err != nil {
		return nil, nil, err
	}
	return minted, refund, nil
}
