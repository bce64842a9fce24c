// Command cerebro consumes standardized-signals and emits trading-orders,
// running the decision pipeline of spec.md §4.2.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/abdoElHodaky/mathematricks-pipeline/internal/brokerreg"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/bus"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/cerebro"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/cerebro/optimizer"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/config"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/domain"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/logging"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/margin"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/store"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to the config directory")
		mockBroker = flag.Bool("mock-broker", true, "Use mock margin preview instead of the live HTTP endpoint")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
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

	engine := cerebro.NewEngine(cerebro.Deps{
		Signals:              store.NewSignalRepository(db),
		Orders:               store.NewOrderRepository(db),
		Accounts:             store.NewAccountRepository(db),
		Funds:                store.NewFundRepository(db),
		Allocations:          store.NewAllocationRepository(db),
		Strategies:           store.NewStrategyRepository(db),
		Bus:                  b,
		Preview:              margin.NewPreviewClient(cfg.Margin.PreviewBaseURL),
		Optimize:             optimizer.NoOp{},
		Logger:               logger,
		MockMargin:           *mockBroker,
		Brokers:              brokerreg.Build(*mockBroker || !cfg.LiveTrading),
		MaxMarginUtilization: cfg.Risk.MaxMarginUtilization,
	})

	err = b.Subscribe(ctx, bus.TopicStandardizedSignals, func(ctx context.Context, raw []byte) error {
		var sig domain.Signal
		if err := json.Unmarshal(raw, &sig); err != nil {
			logger.Warn("malformed signal payload, dropping", zap.Error(err))
			return nil
		}
		return engine.Decide(ctx, &sig)
	})
	if err != nil {
		logger.Fatal("subscribe standardized-signals failed", zap.Error(err))
	}

	logger.Info("cerebro started")
	<-ctx.Done()
	logger.Info("cerebro stopped")
	os.Exit(0)
}
