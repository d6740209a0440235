package lending

import (
	"math/big"
	"sync"

	"whirlpool/core/rebase"
	"whirlpool/crypto"
	nativecommon "whirlpool/native/common"
)

const moduleName = "lending"

// engineState is the persistence contract the Engine consumes, implemented
// concretely by statestore.Store (SPEC_FULL.md §4.13). It mirrors the
// teacher's own engineState interface shape (native/lending/engine.go),
// generalized from a single pool's Market/UserAccount pair to the
// multi-market registry spec.md §3 describes.
type engineState interface {
	GetMarket(key MarketKey) (*MarketData, error)
	PutMarket(key MarketKey, market *MarketData) error
	MarketKeys() ([]MarketKey, error)
	AppendMarketKey(key MarketKey) error
	GetLiquidation(key MarketKey) (*Liquidation, error)
	PutLiquidation(key MarketKey, liquidation *Liquidation) error
	GetVaultBalance(key MarketKey) (Amount, error)
	PutVaultBalance(key MarketKey, balance Amount) error
	GetAccount(key MarketKey, addr crypto.Address) (*Account, error)
	PutAccount(key MarketKey, addr crypto.Address, account *Account) error
	GetMarketsIn(addr crypto.Address) (map[MarketKey]struct{}, error)
	PutMarketsIn(addr crypto.Address, keys map[MarketKey]struct{}) error
	GetGlobalMeta() (*GlobalMeta, error)
	PutGlobalMeta(meta *GlobalMeta) error
}

// GlobalMeta holds the GlobalState fields spec.md §3 lists outside the
// per-market table: total allocation points, the global emission rate, and
// the admin capability's tracked holder.
type GlobalMeta struct {
	TotalAllocationPoints Amount
	RewardsPerTick        Amount
	AdminHolder           crypto.Address
}

// RewardMinter is the IPX collaborator consumed via mint/zero (spec.md §6).
type RewardMinter interface {
	Mint(addr crypto.Address, amount *big.Int) (*big.Int, error)
	Zero() *big.Int
}

// DNRModule is the synthetic stable collaborator consumed via
// mint/burn/get_interest_rate_per_tick/update_interest_rate_per_tick.
type DNRModule interface {
	Mint(addr crypto.Address, amount *big.Int) (*big.Int, error)
	Burn(addr crypto.Address, amount *big.Int) error
	InterestRatePerTick() *big.Int
	SetInterestRatePerTick(rate *big.Int) error
}

// PriceOracle is the price feed collaborator consumed via get_price.
type PriceOracle interface {
	GetPrice(marketKey string) (*big.Int, uint8, error)
}

// Engine orchestrates every state transition of the lending protocol: the
// accrual algorithm, rebase-based share accounting, solvency evaluation,
// user actions, and liquidation settlement. It mirrors the teacher's own
// Engine (native/lending/engine.go): a thin struct wiring external state and
// collaborators, configured via SetXxx setters after construction.
//
// The teacher's Engine runs inside a single-threaded blockchain VM, so it
// never needed its own locking: one transaction executes at a time by
// construction. whirlpool's Engine is instead called concurrently from
// HTTP handlers, so spec.md §5's "commits indivisibly" requirement has to be
// enforced here. mu serializes every mutating action, admin, DNR, and
// liquidation call for the whole read-accrue-mutate-persist body, so two
// concurrent requests against the same (or different) markets can never
// interleave a lost update. Several actions read across multiple markets
// (solvency, liquidation, ClaimAllRewards), which rules out per-market
// locks taken in isolation without a fixed acquisition order; a single
// engine-wide mutex is the simplest correct serialization and matches
// spec.md §5's "or serialize globally" alternative.
type Engine struct {
	mu sync.Mutex

	state engineState
	pauses nativecommon.PauseView

	rewardToken RewardMinter
	dnr         DNRModule
	oracle      PriceOracle
	rates       *InterestRateModel

	tick     Tick
	adminCap *AdminCap
}

// NewEngine constructs an Engine and mints its singleton AdminCap. The
// returned capability must be retained by the caller (e.g. the service
// binary's bootstrap code) and threaded explicitly into every admin
// operation, per spec.md §9's "capabilities as unforgeable owned objects"
// redesign note.
func NewEngine() (*Engine, *AdminCap) {
	cap := &AdminCap{}
	return &Engine{adminCap: cap, rates: NewInterestRateModel()}, cap
}

// SetState wires the engine to its persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetPauses wires the shared pause/guard view consulted by the deposit,
// withdraw, borrow, repay, DNR borrow/repay and liquidation actions
// (ambient, per native/common.Guard's idiom). Market entry/exit, reward
// claims and admin operations do not consult it.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetRewardToken wires the IPX collaborator.
func (e *Engine) SetRewardToken(m RewardMinter) { e.rewardToken = m }

// SetDNRModule wires the DNR collaborator.
func (e *Engine) SetDNRModule(d DNRModule) { e.dnr = d }

// SetOracle wires the price oracle collaborator.
func (e *Engine) SetOracle(o PriceOracle) { e.oracle = o }

// SetInterestRateModel replaces the engine's per-market rate-curve table.
func (e *Engine) SetInterestRateModel(m *InterestRateModel) {
	if m == nil {
		m = NewInterestRateModel()
	}
	e.rates = m
}

// SetTick advances the engine's current tick, analogous to the teacher's
// SetBlockHeight.
func (e *Engine) SetTick(tick Tick) { e.tick = tick }

// Tick returns the engine's current tick.
func (e *Engine) Tick() Tick { return e.tick }

// AdminCap returns the engine's admin capability token. Callers should treat
// the returned pointer as a bearer credential: anyone holding it may invoke
// admin operations.
func (e *Engine) AdminCap() *AdminCap { return e.adminCap }

func (e *Engine) requireState() error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	return nil
}

func (e *Engine) guard() error {
	return nativecommon.Guard(e.pauses, moduleName)
}

func (e *Engine) getMarket(key MarketKey) (*MarketData, error) {
	market, err := e.state.GetMarket(key)
	if err != nil {
		return nil, err
	}
	if market == nil {
		return nil, ErrNilMarket
	}
	return market, nil
}

func (e *Engine) ensureAccount(key MarketKey, addr crypto.Address) (*Account, error) {
	account, err := e.state.GetAccount(key, addr)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return newAccount(), nil
	}
	return account, nil
}

func (e *Engine) ensureMarketsIn(addr crypto.Address) (map[MarketKey]struct{}, error) {
	set, err := e.state.GetMarketsIn(addr)
	if err != nil {
		return nil, err
	}
	if set == nil {
		set = make(map[MarketKey]struct{})
	}
	return set, nil
}

func (e *Engine) globalMeta() (*GlobalMeta, error) {
	meta, err := e.state.GetGlobalMeta()
	if err != nil {
		return nil, err
	}
	if meta == nil {
		meta = &GlobalMeta{
			TotalAllocationPoints: big.NewInt(0),
			RewardsPerTick:        new(big.Int).Set(InitialRewardsPerTick),
		}
	}
	if meta.TotalAllocationPoints == nil {
		meta.TotalAllocationPoints = big.NewInt(0)
	}
	if meta.RewardsPerTick == nil {
		meta.RewardsPerTick = new(big.Int).Set(InitialRewardsPerTick)
	}
	return meta, nil
}

// accrueMarket loads market, applies the per-tick accrual algorithm in
// place, and persists it. borrowRate is resolved by the caller so DNR's
// constant-rate bypass (spec.md §4.6) and the jump-rate model share one
// accrual routine.
func (e *Engine) accrueMarket(key MarketKey, market *MarketData, borrowRate Fraction, meta *GlobalMeta) {
	accrue(market, e.tick, borrowRate, meta.RewardsPerTick, meta.TotalAllocationPoints)
}

// resolveBorrowRate returns the current per-tick borrow rate for key,
// bypassing the jump-rate model for the DNR market (spec.md §4.6).
func (e *Engine) resolveBorrowRate(key MarketKey, market *MarketData) Fraction {
	if key == DNRMarketKey {
		return e.dnr.InterestRatePerTick()
	}
	return e.rates.BorrowRatePerTick(key, market.BalanceValue, market.LoanRebase.Elastic, market.TotalReserves)
}

// accrueAndPersist runs accrual for key and writes the market back to
// state.
func (e *Engine) accrueAndPersist(key MarketKey) (*MarketData, error) {
	market, err := e.getMarket(key)
	if err != nil {
		return nil, err
	}
	meta, err := e.globalMeta()
	if err != nil {
		return nil, err
	}
	rate := e.resolveBorrowRate(key, market)
	e.accrueMarket(key, market, rate, meta)
	if err := e.state.PutMarket(key, market); err != nil {
		return nil, err
	}
	return market, nil
}

// newMarket constructs a freshly admitted MarketData record, per
// create_market (spec.md §6).
func newMarket(borrowCap, collateralCap, ltv, allocationPoints *big.Int, decimals uint8) *MarketData {
	return &MarketData{
		TotalReserves:                    big.NewInt(0),
		AccruedTick:                      0,
		BorrowCap:                        cloneAmount(borrowCap),
		CollateralCap:                    cloneAmount(collateralCap),
		BalanceValue:                     big.NewInt(0),
		IsPaused:                         false,
		LTV:                              cloneAmount(ltv),
		ReserveFactor:                    new(big.Int).Set(InitialReserveFactor),
		AllocationPoints:                 cloneAmount(allocationPoints),
		AccruedCollateralRewardsPerShare: big.NewInt(0),
		AccruedLoanRewardsPerShare:       big.NewInt(0),
		CollateralRebase:                 rebase.New(),
		LoanRebase:                       rebase.New(),
		DecimalsFactor:                   decimalsFactor(decimals),
	}
}
