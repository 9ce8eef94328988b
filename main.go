package main

import (
	"context"
	"fmt"
	"os"

	auctions "auction-house/internal/auctionService"
	"auction-house/internal/audit"
	bidding "auction-house/internal/biddingService"
	"auction-house/internal/clock"
	"auction-house/internal/config"
	"auction-house/internal/feed"
	"auction-house/internal/repository"
	"auction-house/internal/repository/gormstore"
	"auction-house/internal/server"
	"auction-house/internal/sweeper"
	handler "auction-house/services/auction/handler"
	"auction-house/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	utils.SetLevel(cfg.Log.Level)

	store, err := openStore(cfg)
	if err != nil {
		utils.Fatal("failed to open store", map[string]any{"error": err.Error()})
	}

	clk := clock.NewSystem()
	auditor := audit.NewAsyncRecorder(store, 256)
	defer auditor.Close()

	hub := feed.NewHub()

	biddingSvc := bidding.NewBiddingService(store, auditor,
		bidding.WithClock(clk),
		bidding.WithSnipeWindow(cfg.Bidding.SnipeWindow),
		bidding.WithHistoryLimit(cfg.Bidding.HistoryLimit),
	)
	auctionSvc := auctions.NewAuctionService(store, auditor, clk)

	if cfg.Sweep.Enabled {
		runner := sweeper.NewRunner(context.Background())
		lifecycle := sweeper.NewLifecycleSweeper(store, auditor, clk)
		settlement := sweeper.NewSettlementSweeper(store, auditor, clk,
			cfg.Sweep.PaymentGrace, cfg.Sweep.ReopenExtension, cfg.Sweep.StrikeThreshold)

		if _, err := runner.Add("lifecycle", cfg.Sweep.LifecycleSpec, lifecycle.Sweep); err != nil {
			utils.Fatal("failed to schedule lifecycle sweep", map[string]any{"error": err.Error()})
		}
		if _, err := runner.Add("settlement", cfg.Sweep.SettlementSpec, settlement.Sweep); err != nil {
			utils.Fatal("failed to schedule settlement sweep", map[string]any{"error": err.Error()})
		}
		runner.Start()
		defer runner.Stop()
	}

	auctionHandler := handler.NewAuctionHandler(biddingSvc, auctionSvc, hub, cfg.Payment.WebhookSecret)
	router := server.SetupRouter(auctionHandler)

	utils.Info("starting auction server", map[string]any{"addr": cfg.Server.HTTPAddr})
	if err := router.Run(cfg.Server.HTTPAddr); err != nil {
		utils.Fatal("server stopped", map[string]any{"error": err.Error()})
	}
}

// openStore picks Postgres when a DSN is configured and falls back to
// the in-memory store for development.
func openStore(cfg *config.Config) (repository.Store, error) {
	if cfg.DB.DSN != "" {
		return gormstore.Open(cfg.DB)
	}
	utils.Warn("no db.dsn configured, using in-memory store", nil)
	return repository.NewMemoryStore(), nil
}
