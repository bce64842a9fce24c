package ingestion

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/mathematricks-pipeline/internal/bus"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/metrics"
	pipelineerrors "github.com/abdoElHodaky/mathematricks-pipeline/internal/errors"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/store"
)

// catchUpBatchSize bounds one pass over trading_signals_raw at startup.
const catchUpBatchSize = 500

// reconnectAttempts is the number of change-stream reconnect tries before
// Tailer gives up and returns, per spec.md §4.1.
const reconnectAttempts = 5

// Tailer drains unprocessed rows, then follows the live change stream,
// canonicalizing and publishing each signal exactly once.
type Tailer struct {
	rawColl     *mongo.Collection
	signals     *store.SignalRepository
	environment string
	bus         *bus.Bus
	logger      *zap.Logger

	resumeToken bson.Raw
}

// New builds a Tailer scoped to one environment (staging or production), per
// spec.md §4.1's per-environment isolation.
func New(rawColl *mongo.Collection, signals *store.SignalRepository, environment string, b *bus.Bus, logger *zap.Logger) *Tailer {
	return &Tailer{rawColl: rawColl, signals: signals, environment: environment, bus: b, logger: logger}
}

// Run drains the catch-up backlog, then tails the change stream until ctx
// is cancelled, reconnecting with exponential backoff on transient
// disconnects.
func (t *Tailer) Run(ctx context.Context) error {
	if err := t.catchUp(ctx); err != nil {
		return pipelineerrors.Wrap(err, pipelineerrors.CodeDatabase, "catch-up query failed")
	}

	wait := backoff.NewExponentialBackOff()
	wait.InitialInterval = 2 * time.Second

	for attempt := 0; attempt < reconnectAttempts; attempt++ {
		err := t.tailChangeStream(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
		t.logger.Warn("change stream disconnected, reconnecting",
			zap.Int("attempt", attempt+1), zap.Error(err))

		delay := wait.NextBackOff()
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
	return pipelineerrors.New(pipelineerrors.CodeDatabase, "change stream reconnect attempts exhausted")
}

func (t *Tailer) catchUp(ctx context.Context) error {
	rows, err := t.signals.UnprocessedInEnvironment(ctx, t.environment, catchUpBatchSize)
	if err != nil {
		return err
	}
	for _, row := range rows {
		t.publishRow(ctx, row)
	}
	return nil
}

func (t *Tailer) tailChangeStream(ctx context.Context) error {
	pipeline := bson.A{
		bson.M{"$match": bson.M{
			"operationType":            "insert",
			"fullDocument.environment": t.environment,
		}},
	}

	streamOpts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	if t.resumeToken != nil {
		streamOpts.SetResumeAfter(t.resumeToken)
	}
	stream, err := t.rawColl.Watch(ctx, pipeline, streamOpts)
	if err != nil {
		return err
	}
	defer stream.Close(ctx)

	for stream.Next(ctx) {
		var event struct {
			FullDocument store.RawSignal `bson:"fullDocument"`
		}
		if err := stream.Decode(&event); err != nil {
			t.logger.Error("decode change stream event failed", zap.Error(err))
			continue
		}
		t.resumeToken = stream.ResumeToken()
		t.publishRow(ctx, event.FullDocument)
	}
	return stream.Err()
}

func (t *Tailer) publishRow(ctx context.Context, row store.RawSignal) {
	sig, err := Canonicalize(row)
	if err != nil {
		t.logger.Warn("dropping uncanonicalizable signal", zap.String("row", rowKey(row)), zap.Error(err))
		return
	}

	if err := t.bus.Publish(bus.TopicStandardizedSignals, sig); err != nil {
		t.logger.Error("publish standardized signal failed", zap.String("signal_id", sig.SignalID), zap.Error(err))
		return
	}
	metrics.SignalsIngested.Inc()

	if row.ID != "" {
		_ = t.signals.MarkProcessed(ctx, row.ID)
	}
}
