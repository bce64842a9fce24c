package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Decision is the full record of what Cerebro did with a signal, appended
// to signal_store regardless of outcome (spec.md §4.2(h)).
type Decision struct {
	SignalID          string                 `bson:"signal_id" json:"signal_id"`
	Terminal          bool                   `bson:"terminal" json:"terminal"`
	Accepted          bool                   `bson:"accepted" json:"accepted"`
	RejectReason      string                 `bson:"reject_reason,omitempty" json:"reject_reason,omitempty"`
	Inputs            map[string]interface{} `bson:"inputs,omitempty" json:"inputs,omitempty"`
	SelectedAccounts  []string               `bson:"selected_accounts,omitempty" json:"selected_accounts,omitempty"`
	OrderIDs          []string               `bson:"order_ids,omitempty" json:"order_ids,omitempty"`
	DecidedAt         time.Time              `bson:"decided_at" json:"decided_at"`
}

// RawSignal is one row of the durable source-of-truth signal store that
// Ingestion tails.
type RawSignal struct {
	ID               string                 `bson:"_id" json:"id"`
	SignalID         string                 `bson:"signal_id,omitempty" json:"signal_id,omitempty"`
	Strategy         string                 `bson:"strategy" json:"strategy"`
	Environment      string                 `bson:"environment" json:"environment"`
	SignalProcessed  bool                   `bson:"signal_processed" json:"signal_processed"`
	ReceivedAt       time.Time              `bson:"received_at" json:"received_at"`
	Payload          map[string]interface{} `bson:"signal" json:"signal"`
}

// SignalRepository reads trading_signals_raw and reads/writes signal_store.
type SignalRepository struct {
	raw      *mongo.Collection
	decision *mongo.Collection
	logger   *zap.Logger
}

func NewSignalRepository(s *Store) *SignalRepository {
	return &SignalRepository{
		raw:      s.Collection(CollRawSignals),
		decision: s.Collection(CollSignalStore),
		logger:   s.Logger(),
	}
}

// UnprocessedInEnvironment returns catch-up rows in ascending received_at
// order, per spec.md §4.1.
func (r *SignalRepository) UnprocessedInEnvironment(ctx context.Context, environment string, limit int) ([]RawSignal, error) {
	filter := bson.M{"signal_processed": bson.M{"$ne": true}, "environment": environment}
	opts := options.Find().SetSort(bson.D{{Key: "received_at", Value: 1}}).SetLimit(int64(limit))
	cur, err := r.raw.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("fetch unprocessed signals failed", zap.Error(err))
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []RawSignal
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkProcessed flips signal_processed best-effort; callers must not block
// publication on its result (spec.md §4.1).
func (r *SignalRepository) MarkProcessed(ctx context.Context, rowID string) error {
	_, err := r.raw.UpdateOne(ctx, bson.M{"_id": rowID}, bson.M{"$set": bson.M{"signal_processed": true}})
	if err != nil {
		r.logger.Warn("mark processed failed", zap.String("row_id", rowID), zap.Error(err))
	}
	return err
}

// DecisionFor returns the recorded decision for a signal_id, if any.
func (r *SignalRepository) DecisionFor(ctx context.Context, signalID string) (*Decision, error) {
	var d Decision
	err := r.decision.FindOne(ctx, byID("signal_id", signalID)).Decode(&d)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

// AppendDecision upserts the terminal decision for a signal, satisfying the
// idempotency invariant in spec.md §3: a retried signal_id must be a no-op
// once this record is terminal.
func (r *SignalRepository) AppendDecision(ctx context.Context, d *Decision) error {
	d.DecidedAt = time.Now()
	_, err := r.decision.UpdateOne(ctx,
		byID("signal_id", d.SignalID),
		bson.M{"$set": d},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		r.logger.Error("append decision failed", zap.String("signal_id", d.SignalID), zap.Error(err))
	}
	return err
}
