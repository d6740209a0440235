package lending

import (
	"math/big"

	"whirlpool/crypto"
)

// Every action below follows the common pattern spec.md §4.5 describes:
// resolve market_key, accrue, snapshot pending reward debt, mutate market
// and account state, recompute the rewards_paid watermark from the
// post-mutation shares/principal, run the gating predicate (and solvency
// where required), and finally mint the caller's owed IPX.

func (e *Engine) precheck(key MarketKey) error {
	if err := e.requireState(); err != nil {
		return err
	}
	if err := e.guard(); err != nil {
		return err
	}
	if key == DNRMarketKey {
		return ErrDNROperationNotAllowed
	}
	return nil
}

// Deposit implements deposit<T>(amount) -> Coin<IPX>.
func (e *Engine) Deposit(user crypto.Address, key MarketKey, amount Amount) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.precheck(key); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	market, err := e.accrueAndPersist(key)
	if err != nil {
		return nil, err
	}
	account, err := e.ensureAccount(key, user)
	if err != nil {
		return nil, err
	}

	pending := pendingCollateralReward(market, account)

	deltaShares := market.CollateralRebase.AddElastic(amount, false)

	vaultBalance, err := e.state.GetVaultBalance(key)
	if err != nil {
		return nil, err
	}
	if vaultBalance == nil {
		vaultBalance = big.NewInt(0)
	}
	vaultBalance = new(big.Int).Add(vaultBalance, amount)
	market.BalanceValue = new(big.Int).Add(market.BalanceValue, amount)

	account.Shares = new(big.Int).Add(account.Shares, deltaShares)
	syncCollateralRewardsPaid(market, account)

	if market.IsPaused {
		return nil, ErrMarketPaused
	}
	if market.CollateralCap.Cmp(market.CollateralRebase.Elastic) < 0 {
		return nil, ErrMaxCollateralReached
	}

	if err := e.state.PutVaultBalance(key, vaultBalance); err != nil {
		return nil, err
	}
	if err := e.state.PutMarket(key, market); err != nil {
		return nil, err
	}
	if err := e.state.PutAccount(key, user, account); err != nil {
		return nil, err
	}

	return e.mintReward(user, pending)
}

// Withdraw implements withdraw<T>(shares) -> (Coin<T>, Coin<IPX>).
func (e *Engine) Withdraw(user crypto.Address, key MarketKey, sharesToRemove Amount) (*big.Int, *big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.precheck(key); err != nil {
		return nil, nil, err
	}
	if sharesToRemove == nil || sharesToRemove.Sign() <= 0 {
		return nil, nil, ErrInvalidAmount
	}

	market, err := e.accrueAndPersist(key)
	if err != nil {
		return nil, nil, err
	}
	account, err := e.ensureAccount(key, user)
	if err != nil {
		return nil, nil, err
	}
	if account.Shares.Cmp(sharesToRemove) < 0 {
		return nil, nil, ErrNotEnoughShares
	}

	pending := pendingCollateralReward(market, account)

	underlying := market.CollateralRebase.SubBase(sharesToRemove, false)

	if market.BalanceValue.Cmp(underlying) < 0 {
		return nil, nil, ErrNotEnoughCashToWithdraw
	}
	market.BalanceValue = new(big.Int).Sub(market.BalanceValue, underlying)

	account.Shares = new(big.Int).Sub(account.Shares, sharesToRemove)
	syncCollateralRewardsPaid(market, account)

	vaultBalance, err := e.state.GetVaultBalance(key)
	if err != nil {
		return nil, nil, err
	}
	vaultBalance = new(big.Int).Sub(vaultBalance, underlying)

	if market.IsPaused {
		return nil, nil, ErrMarketPaused
	}

	marketsIn, err := e.ensureMarketsIn(user)
	if err != nil {
		return nil, nil, err
	}
	if len(marketsIn) > 0 {
		solvent, err := e.isUserSolventWithMarkets(key, user, underlying, big.NewInt(0), marketsIn)
		if err != nil {
			return nil, nil, err
		}
		if !solvent {
			return nil, nil, ErrWithdrawNotAllowed
		}
	}

	if err := e.state.PutVaultBalance(key, vaultBalance); err != nil {
		return nil, nil, err
	}
	if err := e.state.PutMarket(key, market); err != nil {
		return nil, nil, err
	}
	if err := e.state.PutAccount(key, user, account); err != nil {
		return nil, nil, err
	}

	minted, err := e.mintReward(user, pending)
	if err != nil {
		return nil, nil, err
	}
	return underlying, minted, nil
}

// Borrow implements borrow<T>(amount) -> (Coin<T>, Coin<IPX>).
func (e *Engine) Borrow(user crypto.Address, key MarketKey, borrowValue Amount) (*big.Int, *big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.precheck(key); err != nil {
		return nil, nil, err
	}
	if borrowValue == nil || borrowValue.Sign() <= 0 {
		return nil, nil, ErrInvalidAmount
	}

	market, err := e.getMarket(key)
	if err != nil {
		return nil, nil, err
	}
	if market.BalanceValue.Cmp(borrowValue) < 0 {
		return nil, nil, ErrNotEnoughCashToLend
	}

	market, err = e.accrueAndPersist(key)
	if err != nil {
		return nil, nil, err
	}
	account, err := e.ensureAccount(key, user)
	if err != nil {
		return nil, nil, err
	}
	marketsIn, err := e.ensureMarketsIn(user)
	if err != nil {
		return nil, nil, err
	}
	marketsIn[key] = struct{}{}

	pending := pendingLoanReward(market, account)

	deltaPrincipal := market.LoanRebase.AddElastic(borrowValue, true)
	account.Principal = new(big.Int).Add(account.Principal, deltaPrincipal)
	syncLoanRewardsPaid(market, account)

	market.BalanceValue = new(big.Int).Sub(market.BalanceValue, borrowValue)
	vaultBalance, err := e.state.GetVaultBalance(key)
	if err != nil {
		return nil, nil, err
	}
	vaultBalance = new(big.Int).Sub(vaultBalance, borrowValue)

	// Gate: the source compares the borrow cap to the collateral side's
	// elastic rather than the loan side; preserved verbatim per spec.md §9's
	// Open Question (not silently corrected to LoanRebase.Elastic).
	if market.IsPaused {
		return nil, nil, ErrMarketPaused
	}
	if market.BorrowCap.Cmp(market.CollateralRebase.Elastic) < 0 {
		return nil, nil, ErrBorrowCapLimitReached
	}
	solvent, err := e.isUserSolventWithMarkets(key, user, big.NewInt(0), borrowValue, marketsIn)
	if err != nil {
		return nil, nil, err
	}
	if !solvent {
		return nil, nil, ErrBorrowNotAllowed
	}

	if err := e.state.PutVaultBalance(key, vaultBalance); err != nil {
		return nil, nil, err
	}
	if err := e.state.PutMarket(key, market); err != nil {
		return nil, nil, err
	}
	if err := e.state.PutAccount(key, user, account); err != nil {
		return nil, nil, err
	}
	if err := e.state.PutMarketsIn(user, marketsIn); err != nil {
		return nil, nil, err
	}

	minted, err := e.mintReward(user, pending)
	if err != nil {
		return nil, nil, err
	}
	return new(big.Int).Set(borrowValue), minted, nil
}

// Repay implements repay<T>(coins, principal_to_repay) -> Coin<IPX>. It
// returns the minted IPX and the excess asset value to refund the caller
// (zero when the supplied coin exactly covers safe_principal).
func (e *Engine) Repay(user crypto.Address, key MarketKey, assetValue, principalToRepay Amount) (*big.Int, *big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.precheck(key); err != nil {
		return nil, nil, err
	}
	if assetValue == nil || assetValue.Sign() <= 0 {
		return nil, nil, ErrInvalidAmount
	}

	market, err := e.accrueAndPersist(key)
	if err != nil {
		return nil, nil, err
	}
	account, err := e.ensureAccount(key, user)
	if err != nil {
		return nil, nil, err
	}

	pending := pendingLoanReward(market, account)

	assetPrincipal := market.LoanRebase.ToBase(assetValue, false)
	safePrincipal := assetPrincipal
	if safePrincipal.Cmp(account.Principal) > 0 {
		safePrincipal = account.Principal
	}
	if principalToRepay != nil && principalToRepay.Cmp(safePrincipal) < 0 {
		safePrincipal = principalToRepay
	}

	repayAmount := market.LoanRebase.ToElastic(safePrincipal, true)

	refund := big.NewInt(0)
	if assetValue.Cmp(repayAmount) > 0 {
		refund = new(big.Int).Sub(assetValue, repayAmount)
	}

	market.BalanceValue = new(big.Int).Add(market.BalanceValue, repayAmount)
	vaultBalance, err := e.state.GetVaultBalance(key)
	if err != nil {
		return nil, nil, err
	}
	vaultBalance = new(big.Int).Add(vaultBalance, repayAmount)

	account.Principal = new(big.Int).Sub(account.Principal, safePrincipal)
	syncLoanRewardsPaid(market, account)

	if market.IsPaused {
		return nil, nil, ErrMarketPaused
	}

	if err := e.state.PutVaultBalance(key, vaultBalance); err != nil {
		return nil, nil, err
	}
	if err := e.state.PutMarket(key, market); err != nil {
		return nil, nil, err
	}
	if err := e.state.PutAccount(key, user, account); err != nil {
		return nil, nil, err
	}

	minted, err := e.mintReward(user, pending)
	if err != nil {
		return nil, nil, err
	}
	return minted, refund, nil
}

// EnterMarket inserts key into the user's markets_in set if absent.
func (e *Engine) EnterMarket(user crypto.Address, key MarketKey) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(); err != nil {
		return err
	}
	marketsIn, err := e.ensureMarketsIn(user)
	if err != nil {
		return err
	}
	if _, ok := marketsIn[key]; ok {
		return nil
	}
	marketsIn[key] = struct{}{}
	return e.state.PutMarketsIn(user, marketsIn)
}

// ExitMarket removes key from the user's markets_in set, requiring a zero
// loan principal in that market and post-removal solvency.
func (e *Engine) ExitMarket(user crypto.Address, key MarketKey) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(); err != nil {
		return err
	}
	account, err := e.ensureAccount(key, user)
	if err != nil {
		return err
	}
	if account.Principal.Sign() != 0 {
		return ErrMarketExitLoanOpen
	}

	marketsIn, err := e.ensureMarketsIn(user)
	if err != nil {
		return err
	}
	if _, ok := marketsIn[key]; !ok {
		return nil
	}
	delete(marketsIn, key)
	// An empty set leaves no debt to cover (every borrow enters its market),
	// and the strict comparison would read 0 > 0 as insolvent.
	if len(marketsIn) > 0 {
		solvent, err := e.isUserSolventWithMarkets(key, user, big.NewInt(0), big.NewInt(0), marketsIn)
		if err != nil {
			return err
		}
		if !solvent {
			return ErrUserIsInsolvent
		}
	}
	return e.state.PutMarketsIn(user, marketsIn)
}

// ClaimRewards implements the per-market claim-rewards variant: accrue
// once, return the summed collateral+loan pending as minted IPX, and reset
// both watermarks.
func (e *Engine) ClaimRewards(user crypto.Address, key MarketKey) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.claimRewards(user, key)
}

// claimRewards is the lock-free body shared by ClaimRewards and
// ClaimAllRewards; callers must hold e.mu.
func (e *Engine) claimRewards(user crypto.Address, key MarketKey) (*big.Int, error) {
	if err := e.requireState(); err != nil {
		return nil, err
	}
	market, err := e.accrueAndPersist(key)
	if err != nil {
		return nil, err
	}
	account, err := e.ensureAccount(key, user)
	if err != nil {
		return nil, err
	}

	pending := new(big.Int).Add(pendingCollateralReward(market, account), pendingLoanReward(market, account))

	syncCollateralRewardsPaid(market, account)
	syncLoanRewardsPaid(market, account)

	if err := e.state.PutAccount(key, user, account); err != nil {
		return nil, err
	}

	return e.mintReward(user, pending)
}

// ClaimAllRewards is the all-markets claim variant: it iterates
// market_keys and sums claimRewards across each under a single lock, so the
// whole multi-market claim commits as one indivisible action per spec.md §5.
// Per spec.md §4.5, the per-market behavior is the sole source of truth;
// this is its summation.
func (e *Engine) ClaimAllRewards(user crypto.Address) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(); err != nil {
		return nil, err
	}
	keys, err := e.state.MarketKeys()
	if err != nil {
		return nil, err
	}
	total := big.NewInt(0)
	for _, key := range keys {
		minted, err := e.claimRewards(user, key)
		if err != nil {
			return nil, err
		}
		total = total.Add(total, minted)
	}
	return total, nil
}

func (e *Engine) mintReward(user crypto.Address, pending *big.Int) (*big.Int, error) {
	if pending == nil || pending.Sign() <= 0 {
		return e.rewardToken.Zero(), nil
	}
	return e.rewardToken.Mint(user, pending)
}
