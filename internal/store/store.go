// Package store wraps the eight MongoDB collections spec.md §6 names behind
// typed repository structs, following the trading platform's repository
// convention: a struct holding the handle and a *zap.Logger, constructors
// named NewXRepository, context-first methods.
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Store opens and names the collections the pipeline reads and writes.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// Collection names, keyed as spec.md §6 lists them.
const (
	CollRawSignals  = "trading_signals_raw"
	CollSignalStore = "signal_store"
	CollOrders      = "trading_orders"
	CollAccounts    = "trading_accounts"
	CollClosedPos   = "closed_positions"
	CollStrategies  = "strategies"
	CollFunds       = "funds"
	CollAllocations = "portfolio_allocations"
)

// Connect dials MongoDB and returns a Store bound to database dbName.
func Connect(ctx context.Context, uri, dbName string, logger *zap.Logger) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &Store{client: client, db: client.Database(dbName), logger: logger}, nil
}

// Disconnect closes the underlying client.
func (s *Store) Disconnect(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Collection returns the named collection, for use by repository
// constructors.
func (s *Store) Collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// Logger returns the store's logger, for repositories built on top of it.
func (s *Store) Logger() *zap.Logger { return s.logger }

// IsNotFound reports whether err is mongo's "no documents" sentinel.
func IsNotFound(err error) bool {
	return err == mongo.ErrNoDocuments
}

// byID is a small helper for the common {field: value} filter shape.
func byID(field, value string) bson.M {
	return bson.M{field: value}
}
