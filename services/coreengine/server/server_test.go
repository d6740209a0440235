package server

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"whirlpool/collaborators/oracle"
	"whirlpool/collaborators/rewardtoken"
	"whirlpool/collaborators/stablecoin"
	"whirlpool/crypto"
	"whirlpool/lending"
	"whirlpool/services/coreengine/config"
	"whirlpool/statestore"
)

func newTestService(t *testing.T) (*Service, *lending.Engine, *lending.AdminCap) {
	t.Helper()
	engine, cap := lending.NewEngine()
	engine.SetState(statestore.New())
	engine.SetRewardToken(rewardtoken.NewLedger())
	engine.SetDNRModule(stablecoin.NewModule(big.NewInt(0)))
	engine.SetOracle(oracle.NewFeed())

	authCfg := config.AuthConfig{APITokens: []string{"test-token"}}
	svc := New(engine, cap, authCfg, nil)
	return svc, engine, cap
}

func testAddressString(t *testing.T, b byte) string {
	t.Helper()
	raw := make([]byte, 20)
	raw[19] = b
	addr := crypto.MustNewAddress(crypto.Prefix, raw)
	return addr.String()
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListMarketsIsPublic(t *testing.T) {
	svc, _, _ := newTestService(t)
	rec := doRequest(t, svc.Routes(), http.MethodGet, "/v1/markets", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDepositRequiresAuth(t *testing.T) {
	svc, _, _ := newTestService(t)
	rec := doRequest(t, svc.Routes(), http.MethodPost, "/v1/markets/USDX/deposit", amountRequest{}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateMarketThenDepositAndQuery(t *testing.T) {
	svc, engine, cap := newTestService(t)
	key := lending.MarketKey("USDX")
	cfg := lending.MarketConfig{
		BorrowCap:        big.NewInt(1_000_000_000_000),
		CollateralCap:    big.NewInt(1_000_000_000_000),
		LTV:              big.NewInt(750_000_000),
		AllocationPoints: big.NewInt(1),
		Decimals:         18,
	}
	rates := lending.InterestRateParams{
		BaseRatePerYear:       big.NewInt(0),
		MultiplierPerYear:     big.NewInt(0),
		JumpMultiplierPerYear: big.NewInt(0),
		Kink:                  big.NewInt(800_000_000),
	}
	if err := engine.CreateMarket(cap, key, cfg, rates, lending.Liquidation{
		PenaltyFee:         big.NewInt(0),
		ProtocolPercentage: big.NewInt(0),
	}); err != nil {
		t.Fatalf("create market: %v", err)
	}

	addr := testAddressString(t, 0x01)
	rec := doRequest(t, svc.Routes(), http.MethodPost, "/v1/markets/USDX/deposit", amountRequest{
		Address: addr,
		Amount:  "100",
	}, "test-token")
	if rec.Code != http.StatusOK {
		t.Fatalf("deposit: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, svc.Routes(), http.MethodGet, "/v1/markets/USDX", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get market: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var market lending.MarketData
	if err := json.Unmarshal(rec.Body.Bytes(), &market); err != nil {
		t.Fatalf("decode market: %v", err)
	}
	if market.BalanceValue == nil || market.BalanceValue.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("unexpected balance value: %v", market.BalanceValue)
	}

	rec = doRequest(t, svc.Routes(), http.MethodGet, "/v1/accounts/"+addr+"/markets/USDX", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get account: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, svc.Routes(), http.MethodGet, "/v1/accounts/"+addr+"/markets/USDX/balances", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get account balances: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var balances map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &balances); err != nil {
		t.Fatalf("decode account balances: %v", err)
	}
	if balances["collateral_balance"] != "100" {
		t.Fatalf("unexpected collateral_balance: %v", balances)
	}

	rec = doRequest(t, svc.Routes(), http.MethodGet, "/v1/markets/USDX/borrow-rate", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get borrow rate: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAdminRouteRejectsNonAdminInstance(t *testing.T) {
	engine, _ := lending.NewEngine()
	engine.SetState(statestore.New())
	engine.SetRewardToken(rewardtoken.NewLedger())
	engine.SetDNRModule(stablecoin.NewModule(big.NewInt(0)))
	engine.SetOracle(oracle.NewFeed())
	authCfg := config.AuthConfig{APITokens: []string{"test-token"}}
	svc := New(engine, nil, authCfg, nil)

	rec := doRequest(t, svc.Routes(), http.MethodPost, "/v1/admin/markets/USDX/pause", nil, "test-token")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDepositRejectsInvalidAmount(t *testing.T) {
	svc, engine, cap := newTestService(t)
	key := lending.MarketKey("USDX")
	if err := engine.CreateMarket(cap, key, lending.MarketConfig{
		BorrowCap:        big.NewInt(1),
		CollateralCap:    big.NewInt(1),
		LTV:              big.NewInt(750_000_000),
		AllocationPoints: big.NewInt(1),
		Decimals:         18,
	}, lending.InterestRateParams{
		BaseRatePerYear:       big.NewInt(0),
		MultiplierPerYear:     big.NewInt(0),
		JumpMultiplierPerYear: big.NewInt(0),
		Kink:                  big.NewInt(800_000_000),
	}, lending.Liquidation{PenaltyFee: big.NewInt(0), ProtocolPercentage: big.NewInt(0)}); err != nil {
		t.Fatalf("create market: %v", err)
	}

	rec := doRequest(t, svc.Routes(), http.MethodPost, "/v1/markets/USDX/deposit", amountRequest{
		Address: testAddressString(t, 0x02),
		Amount:  "not-a-number",
	}, "test-token")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGetMarketReturns404ForUnknownKey(t *testing.T) {
	svc, _, _ := newTestService(t)
	rec := doRequest(t, svc.Routes(), http.MethodGet, "/v1/markets/MISSING", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}
