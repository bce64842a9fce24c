// Command execution owns every broker connection and drains trading-orders,
// submitting fills and publishing execution-confirmations/account-updates
// per spec.md §4.5.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/abdoElHodaky/mathematricks-pipeline/internal/brokerreg"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/bus"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/config"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/execution"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/logging"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/position"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/store"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to the config directory")
		mockBroker = flag.Bool("mock-broker", true, "Route every broker name through the in-memory mock adapter")
		live       = flag.Bool("live", false, "Permit order submission against live broker accounts")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if *live {
		cfg.LiveTrading = true
	}

	logger, err := logging.New(cfg.Monitoring.HumanLogPath)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := store.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database, logger)
	if err != nil {
		logger.Fatal("mongo connect failed", zap.Error(err))
	}
	defer db.Disconnect(context.Background())

	b, err := bus.New(bus.Config{NatsURL: cfg.Bus.NatsURL, InMemory: cfg.Bus.InMemory}, logger)
	if err != nil {
		logger.Fatal("bus connect failed", zap.Error(err))
	}
	defer b.Close()

	accounts := store.NewAccountRepository(db)
	orders := store.NewOrderRepository(db)
	closed := store.NewClosedPositionRepository(db)
	manager := position.NewManager(accounts, closed, logger)

	brokers := brokerreg.Build(*mockBroker || !cfg.LiveTrading)
	dispatcher := execution.New(brokers, orders, manager, b, logger)

	go dispatcher.RunSnapshotLoop(ctx, accounts)

	logger.Info("execution started", zap.Bool("live_trading", cfg.LiveTrading))
	if err := dispatcher.Run(ctx); err != nil {
		logger.Error("execution stopped with error", zap.Error(err))
		return
	}
	logger.Info("execution stopped")
}
