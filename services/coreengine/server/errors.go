package server

import (
	"errors"
	"net/http"

	"whirlpool/lending"
)

// toStatus maps a lending domain error to the HTTP status code the gateway
// should answer with. Unrecognised errors (wiring failures, programmer
// errors) fall through to 500, matching the teacher's own toStatus default.
func toStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch {
	case errors.Is(err, lending.ErrMarketPaused),
		errors.Is(err, lending.ErrDepositNotAllowed),
		errors.Is(err, lending.ErrWithdrawNotAllowed),
		errors.Is(err, lending.ErrBorrowNotAllowed),
		errors.Is(err, lending.ErrRepayNotAllowed),
		errors.Is(err, lending.ErrDNROperationNotAllowed),
		errors.Is(err, lending.ErrCanNotUseDNR),
		errors.Is(err, lending.ErrMarketExitLoanOpen),
		errors.Is(err, lending.ErrLiquidatorIsBorrower),
		errors.Is(err, lending.ErrZeroLiquidationAmount),
		errors.Is(err, lending.ErrValueTooHigh),
		errors.Is(err, lending.ErrNoAddressZero),
		errors.Is(err, lending.ErrInvalidAmount),
		errors.Is(err, lending.ErrInvalidFraction),
		errors.Is(err, lending.ErrMarketExists),
		errors.Is(err, lending.ErrMarketNotUpToDate):
		return http.StatusBadRequest

	case errors.Is(err, lending.ErrUserIsInsolvent),
		errors.Is(err, lending.ErrUserIsSolvent),
		errors.Is(err, lending.ErrNotEnoughCashToWithdraw),
		errors.Is(err, lending.ErrNotEnoughCashToLend),
		errors.Is(err, lending.ErrBorrowCapLimitReached),
		errors.Is(err, lending.ErrMaxCollateralReached),
		errors.Is(err, lending.ErrNotEnoughShares),
		errors.Is(err, lending.ErrNotEnoughReserves):
		return http.StatusConflict

	case errors.Is(err, lending.ErrNotAdmin):
		return http.StatusForbidden

	case errors.Is(err, lending.ErrNilMarket),
		errors.Is(err, lending.ErrAccountCollateralDoesNotExist),
		errors.Is(err, lending.ErrAccountLoanDoesNotExist):
		return http.StatusNotFound

	case errors.Is(err, lending.ErrZeroOraclePrice),
		errors.Is(err, lending.ErrNilState):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
}
