// Package bus wraps Watermill's publisher/subscriber behind the five
// durable topics spec.md §6 names, backed by NATS in production and an
// in-memory gochannel pub/sub in tests — adapted from the trading
// platform's WatermillEventBus.
package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Topic names, one durable topic per pipeline hop.
const (
	TopicStandardizedSignals     = "standardized-signals"
	TopicTradingOrders           = "trading-orders"
	TopicExecutionConfirmations  = "execution-confirmations"
	TopicAccountUpdates          = "account-updates"
	TopicOrderCommands           = "order-commands"
)

// Bus publishes and subscribes to JSON payloads on named topics.
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     *zap.Logger
}

// Config selects the transport. InMemory is used by tests and by the
// catch-up-only mode of a single-process demo; production sets NatsURL.
type Config struct {
	NatsURL  string
	InMemory bool
}

// New builds a Bus over NATS, or an in-memory gochannel pub/sub when
// cfg.InMemory is set.
func New(cfg Config, logger *zap.Logger) (*Bus, error) {
	wmLogger := watermill.NewStdLogger(false, false)

	if cfg.InMemory {
		ps := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 1024, Persistent: true}, wmLogger)
		return &Bus{publisher: ps, subscriber: ps, logger: logger}, nil
	}

	pub, err := nats.NewPublisher(nats.PublisherConfig{
		URL:         cfg.NatsURL,
		Marshaler:   &nats.GobMarshaler{},
		NatsOptions: nil,
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("bus: new nats publisher: %w", err)
	}

	sub, err := nats.NewSubscriber(nats.SubscriberConfig{
		URL:            cfg.NatsURL,
		Unmarshaler:    &nats.GobMarshaler{},
		SubscribersCount: 1,
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("bus: new nats subscriber: %w", err)
	}

	return &Bus{publisher: pub, subscriber: sub, logger: logger}, nil
}

// Publish marshals payload as JSON and publishes it to topic.
func (b *Bus) Publish(topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("bus: marshal payload for %s: %w", topic, err)
	}
	msg := message.NewMessage(uuid.NewString(), data)
	if err := b.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("bus: publish to %s: %w", topic, err)
	}
	return nil
}

// Handler is invoked once per delivered message. Returning an error nacks
// the message so it is redelivered, per spec.md §7's transient-failure
// policy.
type Handler func(ctx context.Context, raw []byte) error

// Subscribe drains topic until ctx is cancelled, invoking handler for every
// message and acking/nacking according to its return value.
func (b *Bus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	messages, err := b.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("bus: subscribe to %s: %w", topic, err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				if err := handler(msg.Context(), msg.Payload); err != nil {
					b.logger.Warn("bus: handler failed, nacking", zap.String("topic", topic), zap.Error(err))
					msg.Nack()
					continue
				}
				msg.Ack()
			}
		}
	}()
	return nil
}

// Close releases the underlying publisher and subscriber.
func (b *Bus) Close() error {
	if err := b.publisher.Close(); err != nil {
		return err
	}
	return b.subscriber.Close()
}
