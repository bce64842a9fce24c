// Package execution implements the broker dispatch loop of spec.md §4.5
// over a fixed set of shard goroutines: it consumes trading-orders, submits
// to the right
// broker.Adapter, applies fills through position.Manager, and publishes
// execution-confirmations and periodic account-updates. Grounded on the
// teacher's internal/messaging/unified_dispatcher.go bounded-queue shape.
package execution

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/mathematricks-pipeline/internal/broker"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/bus"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/domain"
	pipelineerrors "github.com/abdoElHodaky/mathematricks-pipeline/internal/errors"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/metrics"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/position"
	"github.com/abdoElHodaky/mathematricks-pipeline/internal/store"
)

// dedupTTL is how long handleOrder remembers an order_id it has already
// queued. The dedup key is the order_id, so the several orders Cerebro
// emits for one signal are each dispatched.
const dedupTTL = 24 * time.Hour

// shardCount bounds the number of per-key serialization goroutines spec.md
// §5 requires for fill ordering.
const shardCount = 16

// dispatchTask is one unit of work routed through a shard.
type dispatchTask struct {
	order *domain.Order
}

// Dispatcher holds every broker.Adapter instance. Adapter calls are made
// from the shard goroutines, the order-commands handler and the snapshot
// loop, so one adapter is not confined to a single goroutine.
type Dispatcher struct {
	brokers map[string]broker.Adapter
	orders  *store.OrderRepository
	manager *position.Manager
	bus     *bus.Bus
	logger  *zap.Logger

	dedup  *gocache.Cache
	shards [shardCount]chan dispatchTask

	active   map[string]*domain.Order
	activeMu sync.Mutex
}

// New builds a Dispatcher. brokers must contain one Adapter per broker
// name referenced by the orders it will receive.
func New(brokers map[string]broker.Adapter, orders *store.OrderRepository, manager *position.Manager, b *bus.Bus, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		brokers: brokers,
		orders:  orders,
		manager: manager,
		bus:     b,
		logger:  logger,
		dedup:   gocache.New(dedupTTL, time.Hour),
		active:  make(map[string]*domain.Order),
	}
	for i := range d.shards {
		d.shards[i] = make(chan dispatchTask, 256)
	}
	return d
}

// Run connects every broker, starts the shard workers, and subscribes to
// trading-orders and order-commands until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	for name, adapter := range d.brokers {
		if err := adapter.Connect(ctx); err != nil {
			d.logger.Error("broker connect failed at startup", zap.String("broker", name), zap.Error(err))
		}
	}

	var wg sync.WaitGroup
	for i := range d.shards {
		wg.Add(1)
		go func(shard chan dispatchTask) {
			defer wg.Done()
			d.runShard(ctx, shard)
		}(d.shards[i])
	}

	if err := d.bus.Subscribe(ctx, bus.TopicTradingOrders, d.handleOrder); err != nil {
		return pipelineerrors.Wrap(err, pipelineerrors.CodeBusUnavailable, "subscribe trading-orders failed")
	}
	if err := d.bus.Subscribe(ctx, bus.TopicOrderCommands, d.handleCommand); err != nil {
		return pipelineerrors.Wrap(err, pipelineerrors.CodeBusUnavailable, "subscribe order-commands failed")
	}

	<-ctx.Done()
	wg.Wait()
	for name, adapter := range d.brokers {
		if err := adapter.Disconnect(context.Background()); err != nil {
			d.logger.Warn("broker disconnect failed", zap.String("broker", name), zap.Error(err))
		}
	}
	return nil
}

func (d *Dispatcher) handleOrder(ctx context.Context, raw []byte) error {
	var order domain.Order
	if err := json.Unmarshal(raw, &order); err != nil {
		d.logger.Error("malformed order payload", zap.Error(err))
		return nil // not retryable; drop
	}

	key := order.OrderID
	if _, dup := d.dedup.Get(key); dup {
		d.logger.Info("duplicate order, skipping", zap.String("order_id", key))
		return nil
	}
	d.dedup.SetDefault(key, struct{}{})

	shard := d.shardFor(order.StrategyID + order.Instrument + string(order.Direction))
	select {
	case d.shards[shard] <- dispatchTask{order: &order}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) handleCommand(ctx context.Context, raw []byte) error {
	var cmd domain.OrderCommand
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return nil
	}
	if cmd.Command != domain.CommandCancel {
		return nil
	}

	d.activeMu.Lock()
	order, ok := d.active[cmd.OrderID]
	d.activeMu.Unlock()
	if !ok {
		return nil
	}
	adapter, ok := d.brokers[order.Broker]
	if !ok {
		return nil
	}
	if _, err := adapter.CancelOrder(ctx, order.BrokerOrderID); err != nil {
		d.logger.Warn("cancel order failed", zap.String("order_id", cmd.OrderID), zap.Error(err))
	}
	return nil
}

// shardFor hashes key with fnv to a shard index, serializing every fill for
// one (strategy, instrument, direction) through the same goroutine — spec.md
// §5's per-key logical lock.
func (d *Dispatcher) shardFor(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % shardCount
}

func (d *Dispatcher) runShard(ctx context.Context, tasks chan dispatchTask) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-tasks:
			d.submit(ctx, task.order)
		}
	}
}

func (d *Dispatcher) submit(ctx context.Context, order *domain.Order) {
	adapter, ok := d.brokers[order.Broker]
	if !ok {
		d.reject(ctx, order, "unknown broker: "+order.Broker)
		return
	}
	if !adapter.IsConnected() {
		if err := adapter.Connect(ctx); err != nil {
			d.logCriticalIfExit(order, pipelineerrors.Wrap(err, pipelineerrors.CodeBrokerConnection, "reconnect failed"))
			d.reject(ctx, order, "broker unavailable")
			return
		}
	}

	d.activeMu.Lock()
	d.active[order.OrderID] = order
	d.activeMu.Unlock()
	defer func() {
		d.activeMu.Lock()
		delete(d.active, order.OrderID)
		d.activeMu.Unlock()
	}()

	result, err := adapter.PlaceOrder(ctx, order)
	if err != nil {
		d.logCriticalIfExit(order, pipelineerrors.Wrap(err, pipelineerrors.CodeOrderRejected, "place order failed"))
		d.reject(ctx, order, err.Error())
		return
	}

	order.Status = result.Status
	order.BrokerOrderID = result.BrokerOrderID
	order.UpdatedAt = time.Now()
	if err := d.orders.UpdateStatus(ctx, order.OrderID, order.Status, order.BrokerOrderID, ""); err != nil {
		d.logger.Error("persist order status failed", zap.String("order_id", order.OrderID), zap.Error(err))
	}
	metrics.OrdersPlaced.WithLabelValues(string(order.Status)).Inc()

	if result.Status == domain.OrderStatusFilled || result.Status == domain.OrderStatusPartiallyFilled {
		d.onFill(ctx, order, result)
	}
}

func (d *Dispatcher) onFill(ctx context.Context, order *domain.Order, result *broker.PlaceResult) {
	fill := position.Fill{
		AccountID:      order.AccountID,
		StrategyID:     order.StrategyID,
		Instrument:     order.Instrument,
		InstrumentType: order.InstrumentType,
		Direction:      order.Direction,
		OrderID:        order.OrderID,
		Quantity:       result.FilledQty,
		Price:          result.AvgFillPrice,
		MarginUsed:     order.MarginUsed,
		IsExit:         order.IsExit,
	}
	if err := d.manager.Apply(ctx, fill); err != nil {
		d.logCriticalIfExit(order, err)
	}

	confirmation := domain.ExecutionConfirmation{
		OrderID:       order.OrderID,
		SignalID:      order.SignalID,
		AccountID:     order.AccountID,
		Instrument:    order.Instrument,
		Direction:     order.Direction,
		FilledQty:     result.FilledQty,
		AvgFillPrice:  result.AvgFillPrice,
		Status:        order.Status,
		BrokerOrderID: result.BrokerOrderID,
		FilledAt:      time.Now(),
	}
	if err := d.bus.Publish(bus.TopicExecutionConfirmations, confirmation); err != nil {
		d.logger.Error("publish execution confirmation failed", zap.String("order_id", order.OrderID), zap.Error(err))
	}
}

func (d *Dispatcher) reject(ctx context.Context, order *domain.Order, reason string) {
	order.Status = domain.OrderStatusRejected
	order.RejectReason = reason
	order.UpdatedAt = time.Now()
	if err := d.orders.UpdateStatus(ctx, order.OrderID, order.Status, "", reason); err != nil {
		d.logger.Error("persist rejected order failed", zap.String("order_id", order.OrderID), zap.Error(err))
	}
	metrics.OrdersRejected.WithLabelValues(reason).Inc()
}

// logCriticalIfExit escalates EXIT order failures, and any failure whose
// error already carries critical severity, to an error-level log per
// spec.md §4.5/§7: a failed exit leaves a position the pipeline believes
// is flat still open at the broker.
func (d *Dispatcher) logCriticalIfExit(order *domain.Order, err error) {
	if order.IsExit || pipelineerrors.IsCritical(err) {
		d.logger.Error("CRITICAL: exit order failed, position may be stuck open",
			zap.String("order_id", order.OrderID),
			zap.String("account_id", order.AccountID),
			zap.String("instrument", order.Instrument),
			zap.Error(err),
		)
		return
	}
	d.logger.Warn("order failed", zap.String("order_id", order.OrderID), zap.Error(err))
}
