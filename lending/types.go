package lending

import (
	"math/big"

	"whirlpool/core/rebase"
	"whirlpool/crypto"
)

// MarketKey is the stable opaque identifier of an asset market. DNRMarketKey
// is reserved for the synthetic debt-only DNR market.
type MarketKey string

// DNRMarketKey identifies the protocol's synthetic stable debt market.
const DNRMarketKey MarketKey = "DNR"

// Tick is a monotonic, non-decreasing counter driving accrual. The engine
// treats it as a block height, matching the teacher's own
// Engine.SetBlockHeight idiom.
type Tick = uint64

// Amount, Price and Fraction are all represented as wide integers scaled to
// Mantissa, matching core/fixedmath's scale.
type (
	Amount   = *big.Int
	Price    = *big.Int
	Fraction = *big.Int
)

// Liquidation holds a market's liquidation parameters.
type Liquidation struct {
	PenaltyFee         Fraction
	ProtocolPercentage Fraction
}

// Clone returns a deep copy of the liquidation parameters.
func (l Liquidation) Clone() Liquidation {
	return Liquidation{
		PenaltyFee:         cloneAmount(l.PenaltyFee),
		ProtocolPercentage: cloneAmount(l.ProtocolPercentage),
	}
}

// MarketData is the per-asset accounting record described in spec.md §3.
type MarketData struct {
	TotalReserves    Amount
	AccruedTick      Tick
	BorrowCap        Amount
	CollateralCap    Amount
	BalanceValue     Amount
	IsPaused         bool
	LTV              Fraction
	ReserveFactor    Fraction
	AllocationPoints Amount

	AccruedCollateralRewardsPerShare *big.Int
	AccruedLoanRewardsPerShare       *big.Int

	CollateralRebase rebase.Rebase
	LoanRebase       rebase.Rebase

	DecimalsFactor Amount
}

// Clone returns a deep copy of the market record so callers can mutate a
// snapshot without aliasing state-store internals.
func (m *MarketData) Clone() *MarketData {
	if m == nil {
		return nil
	}
	return &MarketData{
		TotalReserves:                     cloneAmount(m.TotalReserves),
		AccruedTick:                       m.AccruedTick,
		BorrowCap:                         cloneAmount(m.BorrowCap),
		CollateralCap:                     cloneAmount(m.CollateralCap),
		BalanceValue:                      cloneAmount(m.BalanceValue),
		IsPaused:                          m.IsPaused,
		LTV:                               cloneAmount(m.LTV),
		ReserveFactor:                     cloneAmount(m.ReserveFactor),
		AllocationPoints:                  cloneAmount(m.AllocationPoints),
		AccruedCollateralRewardsPerShare:  cloneAmount(m.AccruedCollateralRewardsPerShare),
		AccruedLoanRewardsPerShare:        cloneAmount(m.AccruedLoanRewardsPerShare),
		CollateralRebase:                  m.CollateralRebase.Clone(),
		LoanRebase:                        m.LoanRebase.Clone(),
		DecimalsFactor:                    cloneAmount(m.DecimalsFactor),
	}
}

// Account is the per-(market, user) position record.
type Account struct {
	Principal Amount
	Shares    Amount

	CollateralRewardsPaid *big.Int
	LoanRewardsPaid       *big.Int
}

// Clone returns a deep copy of the account record.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	return &Account{
		Principal:             cloneAmount(a.Principal),
		Shares:                cloneAmount(a.Shares),
		CollateralRewardsPaid: cloneAmount(a.CollateralRewardsPaid),
		LoanRewardsPaid:       cloneAmount(a.LoanRewardsPaid),
	}
}

func newAccount() *Account {
	return &Account{
		Principal:             big.NewInt(0),
		Shares:                big.NewInt(0),
		CollateralRewardsPaid: big.NewInt(0),
		LoanRewardsPaid:       big.NewInt(0),
	}
}

func cloneAmount(a *big.Int) *big.Int {
	if a == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(a)
}

// AdminCap is the engine's non-clonable admin capability token, per spec.md
// §9's redesign note ("capabilities as unforgeable owned objects"). It
// carries no data of its own; possession of the pointer is the authority
// (requireAdmin compares it with the engine's own), and a fresh *AdminCap is
// only ever handed out once by NewEngine.
type AdminCap struct {
	_ struct{}
}

// accountKey is the composite key used by the in-process account maps.
type accountKey struct {
	market MarketKey
	user   string
}

func keyFor(market MarketKey, addr crypto.Address) accountKey {
	return accountKey{market: market, user: addr.Key()}
}
