package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/mathematricks-pipeline/internal/domain"
)

// FundRepository reads/writes funds.
type FundRepository struct {
	col    *mongo.Collection
	logger *zap.Logger
}

func NewFundRepository(s *Store) *FundRepository {
	return &FundRepository{col: s.Collection(CollFunds), logger: s.Logger()}
}

// ByID fetches a single fund.
func (r *FundRepository) ByID(ctx context.Context, fundID string) (*domain.Fund, error) {
	var f domain.Fund
	err := r.col.FindOne(ctx, byID("fund_id", fundID)).Decode(&f)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

// SetTotalEquity persists the recomputed total_equity, per spec.md §4.2(d).
func (r *FundRepository) SetTotalEquity(ctx context.Context, fundID string, equity float64) error {
	_, err := r.col.UpdateOne(ctx, byID("fund_id", fundID),
		bson.M{"$set": bson.M{"total_equity": equity}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		r.logger.Error("set total equity failed", zap.String("fund_id", fundID), zap.Error(err))
	}
	return err
}

// AllocationRepository reads portfolio_allocations.
type AllocationRepository struct {
	col    *mongo.Collection
	logger *zap.Logger
}

func NewAllocationRepository(s *Store) *AllocationRepository {
	return &AllocationRepository{col: s.Collection(CollAllocations), logger: s.Logger()}
}

// ActiveContaining returns every ACTIVE allocation that references
// strategyID, per spec.md §4.2(c) — one independent sizing attempt per
// fund.
func (r *AllocationRepository) ActiveContaining(ctx context.Context, strategyID string) ([]domain.Allocation, error) {
	filter := bson.M{
		"status":                          domain.AllocationActive,
		"allocations." + strategyID: bson.M{"$exists": true},
	}
	cur, err := r.col.Find(ctx, filter)
	if err != nil {
		r.logger.Error("fetch active allocations failed", zap.String("strategy_id", strategyID), zap.Error(err))
		return nil, err
	}
	defer cur.Close(ctx)
	var out []domain.Allocation
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// StrategyRepository reads strategies.
type StrategyRepository struct {
	col    *mongo.Collection
	logger *zap.Logger
}

func NewStrategyRepository(s *Store) *StrategyRepository {
	return &StrategyRepository{col: s.Collection(CollStrategies), logger: s.Logger()}
}

func (r *StrategyRepository) ByID(ctx context.Context, strategyID string) (*domain.Strategy, error) {
	var st domain.Strategy
	err := r.col.FindOne(ctx, byID("strategy_id", strategyID)).Decode(&st)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &st, nil
}

// ClosedPositionRepository archives closed positions.
type ClosedPositionRepository struct {
	col    *mongo.Collection
	logger *zap.Logger
}

func NewClosedPositionRepository(s *Store) *ClosedPositionRepository {
	return &ClosedPositionRepository{col: s.Collection(CollClosedPos), logger: s.Logger()}
}

// Insert archives a closed position. Callers must treat a failure here as
// fatal to the close transition and keep the open row, per spec.md §4.4.
func (r *ClosedPositionRepository) Insert(ctx context.Context, cp *domain.ClosedPosition) error {
	_, err := r.col.InsertOne(ctx, cp)
	if err != nil {
		r.logger.Error("archive closed position failed", zap.String("position_id", cp.PositionID), zap.Error(err))
	}
	return err
}
