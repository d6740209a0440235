package lending

import (
	"math/big"

	"whirlpool/crypto"
)

func (e *Engine) requireAdmin(cap *AdminCap) error {
	if err := e.requireState(); err != nil {
		return err
	}
	if cap == nil || cap != e.adminCap {
		return ErrNotAdmin
	}
	return nil
}

func requireCeiling(value Fraction) error {
	if value == nil || value.Sign() < 0 || value.Cmp(AdminParameterCeiling) > 0 {
		return ErrInvalidFraction
	}
	return nil
}

// CreateMarket implements create_market<T>(...) (spec.md §6). Fails if
// penalty_fee or protocol_percentage exceeds AdminParameterCeiling.
func (e *Engine) CreateMarket(cap *AdminCap, key MarketKey, cfg MarketConfig, curve InterestRateParams, liquidation Liquidation) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAdmin(cap); err != nil {
		return err
	}
	if err := requireCeiling(liquidation.PenaltyFee); err != nil {
		return err
	}
	if err := requireCeiling(liquidation.ProtocolPercentage); err != nil {
		return err
	}

	if existing, err := e.state.GetMarket(key); err != nil {
		return err
	} else if existing != nil {
		return ErrMarketExists
	}

	market := newMarket(cfg.BorrowCap, cfg.CollateralCap, cfg.LTV, cfg.AllocationPoints, cfg.Decimals)
	if err := e.state.PutMarket(key, market); err != nil {
		return err
	}
	if err := e.state.AppendMarketKey(key); err != nil {
		return err
	}
	if err := e.state.PutLiquidation(key, &Liquidation{
		PenaltyFee:         cloneAmount(liquidation.PenaltyFee),
		ProtocolPercentage: cloneAmount(liquidation.ProtocolPercentage),
	}); err != nil {
		return err
	}
	if key != DNRMarketKey {
		e.rates.SetCurve(key, NewRateCurve(curve))
	}

	meta, err := e.globalMeta()
	if err != nil {
		return err
	}
	meta.TotalAllocationPoints = new(big.Int).Add(meta.TotalAllocationPoints, cfg.AllocationPoints)
	return e.state.PutGlobalMeta(meta)
}

// PauseMarket implements pause_market<T>().
func (e *Engine) PauseMarket(cap *AdminCap, key MarketKey) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.setPaused(cap, key, true)
}

// UnpauseMarket implements unpause_market<T>().
func (e *Engine) UnpauseMarket(cap *AdminCap, key MarketKey) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.setPaused(cap, key, false)
}

func (e *Engine) setPaused(cap *AdminCap, key MarketKey, paused bool) error {
	if err := e.requireAdmin(cap); err != nil {
		return err
	}
	market, err := e.getMarket(key)
	if err != nil {
		return err
	}
	market.IsPaused = paused
	return e.state.PutMarket(key, market)
}

// SetBorrowCap implements set_borrow_cap<T>.
func (e *Engine) SetBorrowCap(cap *AdminCap, key MarketKey, borrowCap Amount) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAdmin(cap); err != nil {
		return err
	}
	market, err := e.getMarket(key)
	if err != nil {
		return err
	}
	market.BorrowCap = cloneAmount(borrowCap)
	return e.state.PutMarket(key, market)
}

// UpdateLiquidation implements update_liquidation<T>(penalty, protocol).
func (e *Engine) UpdateLiquidation(cap *AdminCap, key MarketKey, penaltyFee, protocolPercentage Fraction) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAdmin(cap); err != nil {
		return err
	}
	if err := requireCeiling(penaltyFee); err != nil {
		return err
	}
	if err := requireCeiling(protocolPercentage); err != nil {
		return err
	}
	return e.state.PutLiquidation(key, &Liquidation{
		PenaltyFee:         cloneAmount(penaltyFee),
		ProtocolPercentage: cloneAmount(protocolPercentage),
	})
}

// UpdateReserveFactor implements update_reserve_factor<T>(f), f <= 0.025*MANTISSA.
func (e *Engine) UpdateReserveFactor(cap *AdminCap, key MarketKey, reserveFactor Fraction) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAdmin(cap); err != nil {
		return err
	}
	if err := requireCeiling(reserveFactor); err != nil {
		return err
	}
	market, err := e.getMarket(key)
	if err != nil {
		return err
	}
	market.ReserveFactor = cloneAmount(reserveFactor)
	return e.state.PutMarket(key, market)
}

// UpdateLTV implements update_ltv<T>.
func (e *Engine) UpdateLTV(cap *AdminCap, key MarketKey, ltv Fraction) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAdmin(cap); err != nil {
		return err
	}
	market, err := e.getMarket(key)
	if err != nil {
		return err
	}
	market.LTV = cloneAmount(ltv)
	return e.state.PutMarket(key, market)
}

// UpdateAllocationPoints implements update_the_allocation_points<T>,
// recomputing total_allocation_points.
func (e *Engine) UpdateAllocationPoints(cap *AdminCap, key MarketKey, allocationPoints Amount) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAdmin(cap); err != nil {
		return err
	}
	market, err := e.getMarket(key)
	if err != nil {
		return err
	}
	meta, err := e.globalMeta()
	if err != nil {
		return err
	}
	meta.TotalAllocationPoints = new(big.Int).Sub(meta.TotalAllocationPoints, market.AllocationPoints)
	meta.TotalAllocationPoints = new(big.Int).Add(meta.TotalAllocationPoints, allocationPoints)
	market.AllocationPoints = cloneAmount(allocationPoints)

	if err := e.state.PutMarket(key, market); err != nil {
		return err
	}
	return e.state.PutGlobalMeta(meta)
}

// UpdateIPXPerEpoch implements update_ipx_per_epoch, which must accrue ALL
// markets before updating the global emission rate.
func (e *Engine) UpdateIPXPerEpoch(cap *AdminCap, rewardsPerTick Amount) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAdmin(cap); err != nil {
		return err
	}
	keys, err := e.state.MarketKeys()
	if err != nil {
		return err
	}
	for _, key := range keys {
		if _, err := e.accrueAndPersist(key); err != nil {
			return err
		}
	}
	meta, err := e.globalMeta()
	if err != nil {
		return err
	}
	meta.RewardsPerTick = cloneAmount(rewardsPerTick)
	return e.state.PutGlobalMeta(meta)
}

// UpdateDNRInterestRatePerEpoch implements update_dnr_interest_rate_per_epoch.
func (e *Engine) UpdateDNRInterestRatePerEpoch(cap *AdminCap, ratePerTick Amount) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAdmin(cap); err != nil {
		return err
	}
	return e.dnr.SetInterestRatePerTick(ratePerTick)
}

// SetInterestRateData implements set_interest_rate_data<T>(rates, kink).
func (e *Engine) SetInterestRateData(cap *AdminCap, key MarketKey, params InterestRateParams) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAdmin(cap); err != nil {
		return err
	}
	if key == DNRMarketKey {
		return ErrDNROperationNotAllowed
	}
	e.rates.SetCurve(key, NewRateCurve(params))
	return nil
}

// WithdrawReserves implements withdraw_reserves<T>(amount). spec.md §9
// preserves the source's inequality direction as an Open Question but
// treats the intended semantics (balance_value >= amount AND total_reserves
// >= amount) as authoritative, per SPEC_FULL.md's Open Question decision.
func (e *Engine) WithdrawReserves(cap *AdminCap, key MarketKey, amount Amount) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAdmin(cap); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	market, err := e.getMarket(key)
	if err != nil {
		return err
	}
	if market.BalanceValue.Cmp(amount) < 0 {
		return ErrValueTooHigh
	}
	if market.TotalReserves.Cmp(amount) < 0 {
		return ErrNotEnoughReserves
	}
	market.BalanceValue = new(big.Int).Sub(market.BalanceValue, amount)
	market.TotalReserves = new(big.Int).Sub(market.TotalReserves, amount)

	vaultBalance, err := e.state.GetVaultBalance(key)
	if err != nil {
		return err
	}
	vaultBalance = new(big.Int).Sub(vaultBalance, amount)
	if err := e.state.PutVaultBalance(key, vaultBalance); err != nil {
		return err
	}
	return e.state.PutMarket(key, market)
}

// TransferAdminCap implements transfer_admin_cap(new_admin). The singleton
// AdminCap token itself is never duplicated; this records newAdmin as the
// engine's tracked holder address (GlobalMeta.AdminHolder). Admin operations
// authorize by the *AdminCap pointer alone and never read that address, so
// the pointer's current holder keeps admin authority after the transfer.
func (e *Engine) TransferAdminCap(cap *AdminCap, newAdmin crypto.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireAdmin(cap); err != nil {
		return err
	}
	if newAdmin.IsZero() {
		return ErrNoAddressZero
	}
	meta, err := e.globalMeta()
	if err != nil {
		return err
	}
	meta.AdminHolder = newAdmin
	return e.state.PutGlobalMeta(meta)
}
