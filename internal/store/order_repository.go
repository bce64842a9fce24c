package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/mathematricks-pipeline/internal/domain"
)

// OrderRepository persists and queries trading_orders.
type OrderRepository struct {
	col    *mongo.Collection
	logger *zap.Logger
}

func NewOrderRepository(s *Store) *OrderRepository {
	return &OrderRepository{col: s.Collection(CollOrders), logger: s.Logger()}
}

// Insert writes a newly-created order with status PENDING.
func (r *OrderRepository) Insert(ctx context.Context, o *domain.Order) error {
	_, err := r.col.InsertOne(ctx, o)
	if err != nil {
		r.logger.Error("insert order failed", zap.String("order_id", o.OrderID), zap.Error(err))
	}
	return err
}

// UpdateStatus transitions an order's status and optional broker fields.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, brokerOrderID, rejectReason string) error {
	set := bson.M{"status": status}
	if brokerOrderID != "" {
		set["broker_order_id"] = brokerOrderID
	}
	if rejectReason != "" {
		set["reject_reason"] = rejectReason
	}
	_, err := r.col.UpdateOne(ctx, byID("order_id", orderID), bson.M{"$set": set})
	if err != nil {
		r.logger.Error("update order status failed", zap.String("order_id", orderID), zap.Error(err))
	}
	return err
}

// ByID fetches a single order.
func (r *OrderRepository) ByID(ctx context.Context, orderID string) (*domain.Order, error) {
	var o domain.Order
	err := r.col.FindOne(ctx, byID("order_id", orderID)).Decode(&o)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

// UsedCapital sums notional_value for a strategy's orders in a fund whose
// status still consumes allocated capital (FILLED, SUBMITTED or
// PartiallyFilled), per spec.md §4.2(d).
func (r *OrderRepository) UsedCapital(ctx context.Context, strategyID, fundID string) (float64, error) {
	filter := bson.M{
		"strategy_id": strategyID,
		"fund_id":     fundID,
		"status":      bson.M{"$in": []domain.OrderStatus{domain.OrderStatusFilled, domain.OrderStatusSubmitted, domain.OrderStatusPartiallyFilled}},
	}
	cur, err := r.col.Find(ctx, filter, options.Find().SetProjection(bson.M{"notional_value": 1}))
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	var total float64
	for cur.Next(ctx) {
		var row struct {
			NotionalValue float64 `bson:"notional_value"`
		}
		if err := cur.Decode(&row); err != nil {
			return 0, err
		}
		total += row.NotionalValue
	}
	return total, cur.Err()
}
