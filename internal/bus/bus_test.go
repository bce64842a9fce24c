package bus

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testPayload struct {
	Value string `json:"value"`
}

func TestBus_PublishSubscribeRoundTrip_InMemory(t *testing.T) {
	b, err := New(Config{InMemory: true}, zap.NewNop())
	require.NoError(t, err)
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	received := make(chan testPayload, 1)
	err = b.Subscribe(ctx, "test-topic", func(ctx context.Context, raw []byte) error {
		var p testPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		received <- p
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish("test-topic", testPayload{Value: "hello"}))

	select {
	case p := <-received:
		assert.Equal(t, "hello", p.Value)
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}

func TestBus_HandlerErrorNacksAndRedelivers(t *testing.T) {
	b, err := New(Config{InMemory: true}, zap.NewNop())
	require.NoError(t, err)
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	attempts := make(chan int, 5)
	count := 0
	err = b.Subscribe(ctx, "retry-topic", func(ctx context.Context, raw []byte) error {
		count++
		attempts <- count
		if count < 2 {
			return assert.AnError
		}
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish("retry-topic", testPayload{Value: "x"}))

	var last int
	for i := 0; i < 2; i++ {
		select {
		case last = <-attempts:
		case <-ctx.Done():
			t.Fatal("timed out waiting for redelivery")
		}
	}
	assert.Equal(t, 2, last)
}
