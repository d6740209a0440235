package lending

import (
	"math/big"
	"testing"

	"whirlpool/collaborators/oracle"
	"whirlpool/collaborators/rewardtoken"
	"whirlpool/collaborators/stablecoin"
	"whirlpool/crypto"
	"whirlpool/statestore"
)

// testRig bundles an Engine wired with the three in-process collaborators
// and an in-memory statestore, mirroring the teacher's
// newMockEngineState-plus-NewEngine test setup pattern
// (native/lending/engine_accrual_test.go) scaled to the multi-market case.
type testRig struct {
	engine *Engine
	cap    *AdminCap
	oracle *oracle.Feed
	dnr    *stablecoin.Module
	reward *rewardtoken.Ledger
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	engine, cap := NewEngine()
	store := statestore.New()
	feed := oracle.NewFeed()
	dnr := stablecoin.NewModule(big.NewInt(0))
	reward := rewardtoken.NewLedger()

	engine.SetState(store)
	engine.SetOracle(feed)
	engine.SetDNRModule(dnr)
	engine.SetRewardToken(reward)

	return &testRig{engine: engine, cap: cap, oracle: feed, dnr: dnr, reward: reward}
}

func testAddress(suffix byte) crypto.Address {
	raw := make([]byte, 20)
	raw[len(raw)-1] = suffix
	return crypto.MustNewAddress(crypto.Prefix, raw)
}

// createMarket admits key with the given config and, unless key is DNR,
// installs curve directly via the rate model rather than through
// NewRateCurve's per-year division, so tests can assert on exact per-tick
// values the way spec.md §8's seed scenarios state them.
func (r *testRig) createMarket(t *testing.T, key MarketKey, cfg MarketConfig, curve RateCurve, liquidation Liquidation) {
	t.Helper()
	if err := r.engine.CreateMarket(r.cap, key, cfg, InterestRateParams{}, liquidation); err != nil {
		t.Fatalf("create market %s: %v", key, err)
	}
	if key != DNRMarketKey {
		r.engine.rates.SetCurve(key, curve)
	}
}

func mantissaFrac(numerator, denominator int64) *big.Int {
	n := big.NewInt(numerator)
	n.Mul(n, big.NewInt(1_000_000_000))
	return n.Quo(n, big.NewInt(denominator))
}
