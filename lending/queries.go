package lending

import "whirlpool/crypto"

// GetMarket returns the current snapshot for key, or ErrNilMarket if it has
// never been created. Read-only callers (the HTTP query surface) use this
// rather than reaching into engineState directly. It takes e.mu like every
// mutating action so a reader never observes a market mid-way through a
// concurrent action's read-mutate-write sequence.
func (e *Engine) GetMarket(key MarketKey) (*MarketData, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(); err != nil {
		return nil, err
	}
	return e.getMarket(key)
}

// ListMarkets returns every admitted market in creation order.
func (e *Engine) ListMarkets() ([]MarketKey, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(); err != nil {
		return nil, err
	}
	return e.state.MarketKeys()
}

// GetAccount returns addr's per-market account record, or a zero-value
// account if none has been recorded yet.
func (e *Engine) GetAccount(key MarketKey, addr crypto.Address) (*Account, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(); err != nil {
		return nil, err
	}
	return e.ensureAccount(key, addr)
}

// GetMarketsIn returns the set of markets addr has entered.
func (e *Engine) GetMarketsIn(addr crypto.Address) (map[MarketKey]struct{}, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(); err != nil {
		return nil, err
	}
	return e.ensureMarketsIn(addr)
}

// GetAccountBalances implements get_account_balances<T>(user) -> (Amount,
// Amount): the elastic-side collateral and loan balances backing addr's
// shares/principal under the market's last-persisted rebase ratio, per
// spec.md §6. Like GetMarket, this reads the last-persisted snapshot rather
// than accruing first.
func (e *Engine) GetAccountBalances(key MarketKey, addr crypto.Address) (Amount, Amount, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(); err != nil {
		return nil, nil, err
	}
	market, err := e.getMarket(key)
	if err != nil {
		return nil, nil, err
	}
	account, err := e.ensureAccount(key, addr)
	if err != nil {
		return nil, nil, err
	}
	collateral := market.CollateralRebase.ToElastic(account.Shares, false)
	loan := market.LoanRebase.ToElastic(account.Principal, true)
	return collateral, loan, nil
}

// GetBorrowRatePerEpoch implements get_borrow_rate_per_epoch<T>() -> Fraction:
// the per-tick ("epoch", spec.md §3) borrow rate the market would accrue at
// if ticked now, resolved the same way accrual itself resolves it (the DNR
// constant rate for the synthetic market, the jump-rate curve otherwise).
func (e *Engine) GetBorrowRatePerEpoch(key MarketKey) (Fraction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireState(); err != nil {
		return nil, err
	}
	market, err := e.getMarket(key)
	if err != nil {
		return nil, err
	}
	return e.resolveBorrowRate(key, market), nil
}
