// Command whirlpoold runs the lending engine as a standalone HTTP service,
// mirroring the teacher's services/lendingd/main.go bootstrap shape (load
// config, wire auth, listen, wait on an interrupt signal, drain gracefully)
// with go-chi/JSON in place of gRPC.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"whirlpool/collaborators/oracle"
	"whirlpool/collaborators/rewardtoken"
	"whirlpool/collaborators/stablecoin"
	"whirlpool/lending"
	"whirlpool/observability/logging"
	"whirlpool/services/coreengine/config"
	"whirlpool/services/coreengine/server"
	"whirlpool/statestore"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "services/coreengine/config.yaml", "path to whirlpoold config")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	env := strings.TrimSpace(os.Getenv("WHIRLPOOL_ENV"))
	logger := logging.Setup("whirlpoold", env, cfg.LogLevel)

	seed, err := config.LoadMarketSeed(cfg.MarketSeed)
	if err != nil {
		log.Fatalf("load market seed: %v", err)
	}

	engine, adminCap := lending.NewEngine()
	engine.SetState(statestore.New())
	engine.SetRewardToken(rewardtoken.NewLedger())
	engine.SetDNRModule(stablecoin.NewModule(big.NewInt(0)))
	engine.SetOracle(oracle.NewFeed())

	if err := engine.CreateMarket(adminCap, lending.DNRMarketKey, lending.MarketConfig{
		BorrowCap:        new(big.Int).Set(lending.MantissaBig),
		CollateralCap:    big.NewInt(0),
		LTV:              big.NewInt(0),
		AllocationPoints: big.NewInt(0),
		Decimals:         9,
	}, lending.InterestRateParams{
		BaseRatePerYear:       big.NewInt(0),
		MultiplierPerYear:     big.NewInt(0),
		JumpMultiplierPerYear: big.NewInt(0),
		Kink:                  big.NewInt(0),
	}, lending.Liquidation{PenaltyFee: big.NewInt(0), ProtocolPercentage: big.NewInt(0)}); err != nil {
		log.Fatalf("admit dnr market: %v", err)
	}

	for _, market := range seed.Markets {
		key := lending.MarketKey(market.Key)
		if err := engine.CreateMarket(adminCap, key, market.Config, market.Rates, market.Liquidation.Liquidation()); err != nil {
			log.Fatalf("admit market %s: %v", market.Key, err)
		}
	}

	svc := server.New(engine, adminCap, cfg.Auth, logger)

	mux := http.NewServeMux()
	mux.Handle("/", svc.Routes())
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("whirlpoold listening", slog.String("address", cfg.ListenAddress))
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.String("error", err.Error()))
			_ = httpServer.Close()
		}
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve http: %v", err)
		}
	}
}
