// Package server exposes the lending engine over HTTP/JSON, mirroring the
// teacher's gRPC service shape (thin request validation, a single
// toStatus choke point, structured logging on internal faults)
// without the protobuf machinery: this service wraps an in-process
// *lending.Engine directly rather than proxying to a separate process.
package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"

	"whirlpool/crypto"
	"whirlpool/lending"
	"whirlpool/observability/metrics"
	"whirlpool/services/coreengine/config"
)

const maxRequestBody = 1 << 20 // 1 MiB

// Service adapts lending.Engine to HTTP/JSON handlers.
type Service struct {
	engine   *lending.Engine
	adminCap *lending.AdminCap
	logger   *slog.Logger
	metrics  *metrics.LendingMetrics
	auth     *authenticator
}

// New constructs a Service. adminCap may be nil if this instance should
// never serve the admin routes (e.g. a read-only replica).
func New(engine *lending.Engine, adminCap *lending.AdminCap, authCfg config.AuthConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		engine:   engine,
		adminCap: adminCap,
		logger:   logger,
		metrics:  metrics.Lending(),
		auth:     newAuthenticator(authCfg),
	}
}

// Routes builds the mount table described by spec.md §6.
func (s *Service) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.withRequestID)

	r.Get("/v1/markets", s.listMarkets)
	r.Get("/v1/markets/{key}", s.getMarket)
	r.Get("/v1/markets/{key}/borrow-rate", s.getBorrowRatePerEpoch)
	r.Get("/v1/accounts/{address}/markets/{key}", s.getAccount)
	r.Get("/v1/accounts/{address}/markets/{key}/balances", s.getAccountBalances)

	r.Group(func(r chi.Router) {
		r.Use(s.auth.Middleware)

		r.Post("/v1/markets/{key}/deposit", s.deposit)
		r.Post("/v1/markets/{key}/withdraw", s.withdraw)
		r.Post("/v1/markets/{key}/borrow", s.borrow)
		r.Post("/v1/markets/{key}/repay", s.repay)
		r.Post("/v1/markets/{key}/enter", s.enterMarket)
		r.Post("/v1/markets/{key}/exit", s.exitMarket)
		r.Post("/v1/markets/{key}/claim", s.claimRewards)
		r.Post("/v1/markets/borrow-dnr", s.borrowDNR)
		r.Post("/v1/markets/repay-dnr", s.repayDNR)
		r.Post("/v1/markets/{collateralKey}/liquidate/{loanKey}", s.liquidate)
		r.Post("/v1/markets/{collateralKey}/liquidate-dnr", s.liquidateDNR)

		r.Post("/v1/admin/markets", s.createMarket)
		r.Post("/v1/admin/markets/{key}/pause", s.pauseMarket)
		r.Post("/v1/admin/markets/{key}/unpause", s.unpauseMarket)
		r.Post("/v1/admin/markets/{key}/borrow-cap", s.setBorrowCap)
		r.Post("/v1/admin/markets/{key}/liquidation", s.updateLiquidation)
		r.Post("/v1/admin/markets/{key}/reserve-factor", s.updateReserveFactor)
		r.Post("/v1/admin/markets/{key}/ltv", s.updateLTV)
		r.Post("/v1/admin/markets/{key}/allocation-points", s.updateAllocationPoints)
		r.Post("/v1/admin/ipx-per-epoch", s.updateIPXPerEpoch)
		r.Post("/v1/admin/dnr-rate", s.updateDNRRate)
		r.Post("/v1/admin/markets/{key}/interest-model", s.setInterestRateData)
		r.Post("/v1/admin/markets/{key}/withdraw-reserves", s.withdrawReserves)
		r.Post("/v1/admin/transfer-admin", s.transferAdminCap)
	})

	return r
}

// --- queries ---

func (s *Service) listMarkets(w http.ResponseWriter, r *http.Request) {
	keys, err := s.engine.ListMarkets()
	if err != nil {
		s.fail(w, "list_markets", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"markets": keys})
}

func (s *Service) getMarket(w http.ResponseWriter, r *http.Request) {
	key := lending.MarketKey(chi.URLParam(r, "key"))
	market, err := s.engine.GetMarket(key)
	if err != nil {
		s.fail(w, "get_market", err)
		return
	}
	writeJSON(w, http.StatusOK, market)
}

func (s *Service) getAccount(w http.ResponseWriter, r *http.Request) {
	key := lending.MarketKey(chi.URLParam(r, "key"))
	addr, err := crypto.DecodeAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	account, err := s.engine.GetAccount(key, addr)
	if err != nil {
		s.fail(w, "get_account", err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (s *Service) getAccountBalances(w http.ResponseWriter, r *http.Request) {
	key := lending.MarketKey(chi.URLParam(r, "key"))
	addr, err := crypto.DecodeAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	collateral, loan, err := s.engine.GetAccountBalances(key, addr)
	if err != nil {
		s.fail(w, "get_account_balances", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"collateral_balance": collateral.String(),
		"loan_balance":       loan.String(),
	})
}

func (s *Service) getBorrowRatePerEpoch(w http.ResponseWriter, r *http.Request) {
	key := lending.MarketKey(chi.URLParam(r, "key"))
	rate, err := s.engine.GetBorrowRatePerEpoch(key)
	if err != nil {
		s.fail(w, "get_borrow_rate_per_epoch", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"borrow_rate_per_epoch": rate.String()})
}

// --- user actions ---

type amountRequest struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

func (s *Service) deposit(w http.ResponseWriter, r *http.Request) {
	key := lending.MarketKey(chi.URLParam(r, "key"))
	req, addr, amount, ok := s.decodeAmountRequest(w, r)
	if !ok {
		return
	}
	minted, err := s.engine.Deposit(addr, key, amount)
	s.logAction(r, "deposit", string(key), req.Address, err)
	if err != nil {
		s.fail(w, "deposit", err)
		return
	}
	s.metrics.ObserveAction("deposit", string(key))
	writeJSON(w, http.StatusOK, map[string]any{"address": req.Address, "minted": minted.String()})
}

func (s *Service) withdraw(w http.ResponseWriter, r *http.Request) {
	key := lending.MarketKey(chi.URLParam(r, "key"))
	req, addr, shares, ok := s.decodeAmountRequest(w, r)
	if !ok {
		return
	}
	amount, minted, err := s.engine.Withdraw(addr, key, shares)
	s.logAction(r, "withdraw", string(key), req.Address, err)
	if err != nil {
		s.fail(w, "withdraw", err)
		return
	}
	s.metrics.ObserveAction("withdraw", string(key))
	writeJSON(w, http.StatusOK, map[string]any{
		"amount": amount.String(),
		"minted": minted.String(),
	})
}

func (s *Service) borrow(w http.ResponseWriter, r *http.Request) {
	key := lending.MarketKey(chi.URLParam(r, "key"))
	req, addr, amount, ok := s.decodeAmountRequest(w, r)
	if !ok {
		return
	}
	borrowed, minted, err := s.engine.Borrow(addr, key, amount)
	s.logAction(r, "borrow", string(key), req.Address, err)
	if err != nil {
		s.fail(w, "borrow", err)
		return
	}
	s.metrics.ObserveAction("borrow", string(key))
	writeJSON(w, http.StatusOK, map[string]any{
		"borrowed": borrowed.String(),
		"minted":   minted.String(),
	})
}

type repayRequest struct {
	Address   string `json:"address"`
	Amount    string `json:"amount"`
	Principal string `json:"principal"`
}

func (s *Service) repay(w http.ResponseWriter, r *http.Request) {
	key := lending.MarketKey(chi.URLParam(r, "key"))
	var req repayRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	addr, err := crypto.DecodeAddress(req.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}
	principal, ok := parseAmount(req.Principal)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid principal")
		return
	}
	minted, refund, err := s.engine.Repay(addr, key, amount, principal)
	s.logAction(r, "repay", string(key), req.Address, err)
	if err != nil {
		s.fail(w, "repay", err)
		return
	}
	s.metrics.ObserveAction("repay", string(key))
	writeJSON(w, http.StatusOK, map[string]any{
		"minted": minted.String(),
		"refund": refund.String(),
	})
}

type addressRequest struct {
	Address string `json:"address"`
}

func (s *Service) enterMarket(w http.ResponseWriter, r *http.Request) {
	key := lending.MarketKey(chi.URLParam(r, "key"))
	var req addressRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	addr, err := crypto.DecodeAddress(req.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	err = s.engine.EnterMarket(addr, key)
	s.logAction(r, "enter_market", string(key), req.Address, err)
	if err != nil {
		s.fail(w, "enter_market", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Service) exitMarket(w http.ResponseWriter, r *http.Request) {
	key := lending.MarketKey(chi.URLParam(r, "key"))
	var req addressRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	addr, err := crypto.DecodeAddress(req.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	err = s.engine.ExitMarket(addr, key)
	s.logAction(r, "exit_market", string(key), req.Address, err)
	if err != nil {
		s.fail(w, "exit_market", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Service) claimRewards(w http.ResponseWriter, r *http.Request) {
	key := lending.MarketKey(chi.URLParam(r, "key"))
	var req addressRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	addr, err := crypto.DecodeAddress(req.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	minted, err := s.engine.ClaimRewards(addr, key)
	s.logAction(r, "claim_rewards", string(key), req.Address, err)
	if err != nil {
		s.fail(w, "claim_rewards", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"minted": minted.String()})
}

func (s *Service) borrowDNR(w http.ResponseWriter, r *http.Request) {
	req, addr, amount, ok := s.decodeAmountRequest(w, r)
	if !ok {
		return
	}
	borrowed, minted, err := s.engine.BorrowDNR(addr, amount)
	s.logAction(r, "borrow_dnr", string(lending.DNRMarketKey), req.Address, err)
	if err != nil {
		s.fail(w, "borrow_dnr", err)
		return
	}
	s.metrics.ObserveAction("borrow_dnr", string(lending.DNRMarketKey))
	writeJSON(w, http.StatusOK, map[string]any{
		"borrowed": borrowed.String(),
		"minted":   minted.String(),
	})
}

func (s *Service) repayDNR(w http.ResponseWriter, r *http.Request) {
	var req repayRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	addr, err := crypto.DecodeAddress(req.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}
	principal, ok := parseAmount(req.Principal)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid principal")
		return
	}
	minted, refund, err := s.engine.RepayDNR(addr, amount, principal)
	s.logAction(r, "repay_dnr", string(lending.DNRMarketKey), req.Address, err)
	if err != nil {
		s.fail(w, "repay_dnr", err)
		return
	}
	s.metrics.ObserveAction("repay_dnr", string(lending.DNRMarketKey))
	writeJSON(w, http.StatusOK, map[string]any{
		"minted": minted.String(),
		"refund": refund.String(),
	})
}

type liquidateRequest struct {
	Liquidator string `json:"liquidator"`
	Borrower   string `json:"borrower"`
	Amount     string `json:"amount"`
}

func (s *Service) liquidate(w http.ResponseWriter, r *http.Request) {
	collateralKey := lending.MarketKey(chi.URLParam(r, "collateralKey"))
	loanKey := lending.MarketKey(chi.URLParam(r, "loanKey"))
	liquidator, borrower, amount, ok := s.decodeLiquidateRequest(w, r)
	if !ok {
		return
	}
	paid, err := s.engine.Liquidate(liquidator, borrower, collateralKey, loanKey, amount)
	s.logAction(r, "liquidate", string(collateralKey), borrower.String(), err)
	if err != nil {
		s.fail(w, "liquidate", err)
		return
	}
	s.metrics.ObserveLiquidation(string(collateralKey))
	writeJSON(w, http.StatusOK, map[string]any{"liquidator_amount": paid.String()})
}

func (s *Service) liquidateDNR(w http.ResponseWriter, r *http.Request) {
	collateralKey := lending.MarketKey(chi.URLParam(r, "collateralKey"))
	liquidator, borrower, amount, ok := s.decodeLiquidateRequest(w, r)
	if !ok {
		return
	}
	paid, err := s.engine.LiquidateDNR(liquidator, borrower, collateralKey, amount)
	s.logAction(r, "liquidate_dnr", string(collateralKey), borrower.String(), err)
	if err != nil {
		s.fail(w, "liquidate_dnr", err)
		return
	}
	s.metrics.ObserveLiquidation(string(collateralKey))
	writeJSON(w, http.StatusOK, map[string]any{"liquidator_amount": paid.String()})
}

// --- admin actions ---

type createMarketRequest struct {
	Key         string                     `json:"key"`
	Config      lending.MarketConfig       `json:"config"`
	Rates       lending.InterestRateParams `json:"rates"`
	PenaltyFee  string                     `json:"penalty_fee"`
	ProtocolPct string                     `json:"protocol_percentage"`
}

func (s *Service) createMarket(w http.ResponseWriter, r *http.Request) {
	var req createMarketRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	penaltyFee, ok := parseAmount(req.PenaltyFee)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid penalty_fee")
		return
	}
	protocolPct, ok := parseAmount(req.ProtocolPct)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid protocol_percentage")
		return
	}
	liquidation := lending.Liquidation{PenaltyFee: penaltyFee, ProtocolPercentage: protocolPct}
	if !s.requireAdminCap(w) {
		return
	}
	err := s.engine.CreateMarket(s.adminCap, lending.MarketKey(req.Key), req.Config, req.Rates, liquidation)
	s.logAction(r, "create_market", req.Key, "", err)
	if err != nil {
		s.fail(w, "create_market", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Service) pauseMarket(w http.ResponseWriter, r *http.Request) {
	key := lending.MarketKey(chi.URLParam(r, "key"))
	if !s.requireAdminCap(w) {
		return
	}
	err := s.engine.PauseMarket(s.adminCap, key)
	s.logAction(r, "pause_market", string(key), "", err)
	if err != nil {
		s.fail(w, "pause_market", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Service) unpauseMarket(w http.ResponseWriter, r *http.Request) {
	key := lending.MarketKey(chi.URLParam(r, "key"))
	if !s.requireAdminCap(w) {
		return
	}
	err := s.engine.UnpauseMarket(s.adminCap, key)
	s.logAction(r, "unpause_market", string(key), "", err)
	if err != nil {
		s.fail(w, "unpause_market", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type valueRequest struct {
	Value string `json:"value"`
}

func (s *Service) setBorrowCap(w http.ResponseWriter, r *http.Request) {
	key := lending.MarketKey(chi.URLParam(r, "key"))
	var req valueRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	amount, ok := parseAmount(req.Value)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid value")
		return
	}
	if !s.requireAdminCap(w) {
		return
	}
	err := s.engine.SetBorrowCap(s.adminCap, key, amount)
	s.logAction(r, "set_borrow_cap", string(key), "", err)
	if err != nil {
		s.fail(w, "set_borrow_cap", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type liquidationParamsRequest struct {
	PenaltyFee  string `json:"penalty_fee"`
	ProtocolPct string `json:"protocol_percentage"`
}

func (s *Service) updateLiquidation(w http.ResponseWriter, r *http.Request) {
	key := lending.MarketKey(chi.URLParam(r, "key"))
	var req liquidationParamsRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	penaltyFee, ok := parseAmount(req.PenaltyFee)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid penalty_fee")
		return
	}
	protocolPct, ok := parseAmount(req.ProtocolPct)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid protocol_percentage")
		return
	}
	if !s.requireAdminCap(w) {
		return
	}
	err := s.engine.UpdateLiquidation(s.adminCap, key, penaltyFee, protocolPct)
	s.logAction(r, "update_liquidation", string(key), "", err)
	if err != nil {
		s.fail(w, "update_liquidation", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Service) updateReserveFactor(w http.ResponseWriter, r *http.Request) {
	key := lending.MarketKey(chi.URLParam(r, "key"))
	var req valueRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	value, ok := parseAmount(req.Value)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid value")
		return
	}
	if !s.requireAdminCap(w) {
		return
	}
	err := s.engine.UpdateReserveFactor(s.adminCap, key, value)
	s.logAction(r, "update_reserve_factor", string(key), "", err)
	if err != nil {
		s.fail(w, "update_reserve_factor", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Service) updateLTV(w http.ResponseWriter, r *http.Request) {
	key := lending.MarketKey(chi.URLParam(r, "key"))
	var req valueRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	value, ok := parseAmount(req.Value)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid value")
		return
	}
	if !s.requireAdminCap(w) {
		return
	}
	err := s.engine.UpdateLTV(s.adminCap, key, value)
	s.logAction(r, "update_ltv", string(key), "", err)
	if err != nil {
		s.fail(w, "update_ltv", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Service) updateAllocationPoints(w http.ResponseWriter, r *http.Request) {
	key := lending.MarketKey(chi.URLParam(r, "key"))
	var req valueRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	value, ok := parseAmount(req.Value)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid value")
		return
	}
	if !s.requireAdminCap(w) {
		return
	}
	err := s.engine.UpdateAllocationPoints(s.adminCap, key, value)
	s.logAction(r, "update_allocation_points", string(key), "", err)
	if err != nil {
		s.fail(w, "update_allocation_points", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Service) updateIPXPerEpoch(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	value, ok := parseAmount(req.Value)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid value")
		return
	}
	if !s.requireAdminCap(w) {
		return
	}
	err := s.engine.UpdateIPXPerEpoch(s.adminCap, value)
	s.logAction(r, "update_ipx_per_epoch", "", "", err)
	if err != nil {
		s.fail(w, "update_ipx_per_epoch", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Service) updateDNRRate(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	value, ok := parseAmount(req.Value)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid value")
		return
	}
	if !s.requireAdminCap(w) {
		return
	}
	err := s.engine.UpdateDNRInterestRatePerEpoch(s.adminCap, value)
	s.logAction(r, "update_dnr_rate", string(lending.DNRMarketKey), "", err)
	if err != nil {
		s.fail(w, "update_dnr_rate", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Service) setInterestRateData(w http.ResponseWriter, r *http.Request) {
	key := lending.MarketKey(chi.URLParam(r, "key"))
	var req lending.InterestRateParams
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if !s.requireAdminCap(w) {
		return
	}
	err := s.engine.SetInterestRateData(s.adminCap, key, req)
	s.logAction(r, "set_interest_rate_data", string(key), "", err)
	if err != nil {
		s.fail(w, "set_interest_rate_data", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Service) withdrawReserves(w http.ResponseWriter, r *http.Request) {
	key := lending.MarketKey(chi.URLParam(r, "key"))
	var req valueRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	value, ok := parseAmount(req.Value)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid value")
		return
	}
	if !s.requireAdminCap(w) {
		return
	}
	err := s.engine.WithdrawReserves(s.adminCap, key, value)
	s.logAction(r, "withdraw_reserves", string(key), "", err)
	if err != nil {
		s.fail(w, "withdraw_reserves", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Service) transferAdminCap(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	addr, err := crypto.DecodeAddress(req.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.requireAdminCap(w) {
		return
	}
	err = s.engine.TransferAdminCap(s.adminCap, addr)
	s.logAction(r, "transfer_admin_cap", "", req.Address, err)
	if err != nil {
		s.fail(w, "transfer_admin_cap", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// --- helpers ---

func (s *Service) requireAdminCap(w http.ResponseWriter) bool {
	if s.adminCap == nil {
		writeError(w, http.StatusForbidden, "this instance does not hold the admin capability")
		return false
	}
	return true
}

func (s *Service) decodeAmountRequest(w http.ResponseWriter, r *http.Request) (amountRequest, crypto.Address, *big.Int, bool) {
	var req amountRequest
	if !s.decodeJSON(w, r, &req) {
		return req, crypto.Address{}, nil, false
	}
	addr, err := crypto.DecodeAddress(req.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return req, crypto.Address{}, nil, false
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return req, crypto.Address{}, nil, false
	}
	return req, addr, amount, true
}

func (s *Service) decodeLiquidateRequest(w http.ResponseWriter, r *http.Request) (crypto.Address, crypto.Address, *big.Int, bool) {
	var req liquidateRequest
	if !s.decodeJSON(w, r, &req) {
		return crypto.Address{}, crypto.Address{}, nil, false
	}
	liquidator, err := crypto.DecodeAddress(req.Liquidator)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return crypto.Address{}, crypto.Address{}, nil, false
	}
	borrower, err := crypto.DecodeAddress(req.Borrower)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return crypto.Address{}, crypto.Address{}, nil, false
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return crypto.Address{}, crypto.Address{}, nil, false
	}
	return liquidator, borrower, amount, true
}

func (s *Service) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil {
		writeError(w, http.StatusBadRequest, "missing request body")
		return false
	}
	defer r.Body.Close()
	body := io.LimitReader(r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "decode request: "+err.Error())
		return false
	}
	return true
}

// logAction emits the per-request access log line SPEC_FULL.md's logging
// section calls for: resolved market, action, user address, and error (if
// any). The engine itself stays a pure state machine and never logs.
func (s *Service) logAction(r *http.Request, action, market, address string, err error) {
	authenticated := isAuthenticated(r.Context())
	if err != nil {
		s.logger.Error("lending action", "action", action, "market", market, "address", address, "authenticated", authenticated, "error", err)
		return
	}
	s.logger.Info("lending action", "action", action, "market", market, "address", address, "authenticated", authenticated)
}

func (s *Service) fail(w http.ResponseWriter, action string, err error) {
	status := toStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("lending engine error", "action", action, "error", err)
	}
	writeError(w, status, err.Error())
}

func parseAmount(value string) (*big.Int, bool) {
	if value == "" {
		return big.NewInt(0), true
	}
	return new(big.Int).SetString(value, 10)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
