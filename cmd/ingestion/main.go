// Command ingestion tails trading_signals_raw and republishes canonical
// signals onto standardized-signals.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/abdoElHodaky/mathematricks-pipeline/internal/bus"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/config"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/ingestion"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/logging"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/store"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to the config directory")
		env        = flag.String("env", "", "Override environment (staging | production)")
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

	environment := cfg.Environment
	if *env != "" {
		environment = *env
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := store.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database, logger)
	if err != nil {
		logger.Fatal("mongo connect failed", zap.Error(err))
	}
	defer db.Disconnect(context.Background())

	signals := store.NewSignalRepository(db)

	b, err := bus.New(bus.Config{NatsURL: cfg.Bus.NatsURL, InMemory: cfg.Bus.InMemory}, logger)
	if err != nil {
		logger.Fatal("bus connect failed", zap.Error(err))
	}
	defer b.Close()

	tailer := ingestion.New(db.Collection(store.CollRawSignals), signals, environment, b, logger)

	logger.Info("ingestion starting", zap.String("environment", environment))
	if err := tailer.Run(ctx); err != nil {
		logger.Error("ingestion stopped with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("ingestion stopped")
}
