package lending

import "errors"

// Gating errors: raised by the post-mutation predicate each action runs
// before it is allowed to commit.
var (
	ErrMarketPaused        = errors.New("lending: market is paused")
	ErrDepositNotAllowed   = errors.New("lending: deposit not allowed")
	ErrWithdrawNotAllowed  = errors.New("lending: withdraw not allowed")
	ErrBorrowNotAllowed    = errors.New("lending: borrow not allowed")
	ErrRepayNotAllowed     = errors.New("lending: repay not allowed")
)

// Capacity/liquidity errors.
var (
	ErrNotEnoughCashToWithdraw = errors.New("lending: not enough cash to withdraw")
	ErrNotEnoughCashToLend     = errors.New("lending: not enough cash to lend")
	ErrBorrowCapLimitReached   = errors.New("lending: borrow cap limit reached")
	ErrMaxCollateralReached    = errors.New("lending: max collateral reached")
	ErrNotEnoughShares         = errors.New("lending: not enough shares")
	ErrNotEnoughReserves       = errors.New("lending: not enough reserves")
)

// Solvency errors.
var (
	ErrUserIsInsolvent = errors.New("lending: user is insolvent")
	ErrUserIsSolvent   = errors.New("lending: user is solvent")
)

// Policy errors.
var (
	ErrDNROperationNotAllowed = errors.New("lending: operation not allowed on the DNR market")
	ErrCanNotUseDNR           = errors.New("lending: DNR cannot be used here")
	ErrMarketExitLoanOpen     = errors.New("lending: cannot exit a market with an open loan")
	ErrLiquidatorIsBorrower   = errors.New("lending: liquidator cannot be the borrower")
	ErrZeroLiquidationAmount  = errors.New("lending: liquidation amount is zero")
	ErrValueTooHigh           = errors.New("lending: value exceeds the allowed ceiling")
	ErrNoAddressZero          = errors.New("lending: the zero address is not a valid recipient")
)

// Data errors.
var (
	ErrZeroOraclePrice               = errors.New("lending: oracle price is zero")
	ErrAccountCollateralDoesNotExist = errors.New("lending: account has no collateral position")
	ErrAccountLoanDoesNotExist       = errors.New("lending: account has no loan position")
	ErrMarketNotUpToDate             = errors.New("lending: market has not been accrued to the current tick")
)

// Ambient errors: engine wiring/configuration failures that spec.md treats
// as the host's responsibility rather than domain error codes, following
// the teacher's own split between domain sentinels and wiring sentinels.
var (
	ErrNilState        = errors.New("lending: engine state not configured")
	ErrNilMarket       = errors.New("lending: market not found")
	ErrMarketExists    = errors.New("lending: market already exists")
	ErrInvalidAmount   = errors.New("lending: amount must be positive")
	ErrNotAdmin        = errors.New("lending: caller does not hold the admin capability")
	ErrInvalidFraction = errors.New("lending: fraction exceeds its allowed ceiling")
)
