package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitcrew/trainer-hub/internal/domain/shared"
	"github.com/fitcrew/trainer-hub/pkg/circuitbreaker"
)

var testAt = time.Date(2024, 1, 7, 23, 0, 0, 0, time.UTC)

func TestInMemoryEventBus_Sync(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{})

	var typed, all []shared.EventType
	require.NoError(t, bus.Subscribe(shared.EventBadgeAwarded, func(e shared.Event) error {
		typed = append(typed, e.EventType())
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		all = append(all, e.EventType())
		return errors.New("boom")
	}))

	require.NoError(t, bus.Publish(shared.NewBadgeAwardedEvent("m1", "weekly", "2024-01-01", testAt)))
	require.NoError(t, bus.Publish(shared.NewDietRecordedEvent("m1", "2024-01-02", 1, testAt)))

	assert.Equal(t, []shared.EventType{shared.EventBadgeAwarded}, typed)
	assert.Len(t, all, 2)
	assert.EqualValues(t, 2, bus.Metrics().Published())
	assert.EqualValues(t, 2, bus.Metrics().Failures())
	assert.EqualValues(t, 1, bus.Metrics().Successes())
}

func TestInMemoryEventBus_PanicIsContained(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{})
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { panic("handler bug") }))

	assert.NotPanics(t, func() {
		require.NoError(t, bus.Publish(shared.NewMemberRegisteredEvent("m1", "kim", testAt)))
	})
	assert.EqualValues(t, 1, bus.Metrics().Failures())
}

func TestInMemoryEventBus_AsyncCloseWaits(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: true, WorkerPoolSize: 2})
	var n atomic.Int32
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		time.Sleep(5 * time.Millisecond)
		n.Add(1)
		return nil
	}))
	for range 5 {
		require.NoError(t, bus.Publish(shared.NewMemberRegisteredEvent("m1", "", testAt)))
	}
	require.NoError(t, bus.Close())
	assert.EqualValues(t, 5, n.Load())

	assert.ErrorIs(t, bus.Publish(shared.NewMemberRegisteredEvent("m1", "", testAt)), ErrEventBusClosed)
	assert.ErrorIs(t, bus.SubscribeAll(func(shared.Event) error { return nil }), ErrEventBusClosed)
}

type fakeWriter struct {
	mu    sync.Mutex
	msgs  []kafka.Message
	fails int
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fails > 0 {
		w.fails--
		return errors.New("leader not available")
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{fails: 1}
	p := NewKafkaPublisherWithWriter(w, time.Second, nil)

	event := shared.NewTrophyAwardedEvent("m7", "2024-01", testAt)
	require.NoError(t, p.Publish(event))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "m7", string(msg.Key))
	assert.Equal(t, testAt, msg.Time)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "trophy.awarded", string(msg.Headers[0].Value))

	var env shared.EventEnvelope
	require.NoError(t, json.Unmarshal(msg.Value, &env))
	assert.Equal(t, event.EventID(), env.ID)
	assert.Equal(t, shared.EventTrophyAwarded, env.Type)
	assert.JSONEq(t, `{"badge":"monthly","period":"2024-01"}`, string(env.Payload))
}

func TestNewKafkaPublisher_Validates(t *testing.T) {
	_, err := NewKafkaPublisher(KafkaConfig{Topic: "ledger"}, nil)
	assert.Error(t, err)
	_, err = NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}}, nil)
	assert.Error(t, err)
}

func TestKafkaPublisher_OpensCircuit(t *testing.T) {
	w := &fakeWriter{fails: 1000}
	p := NewKafkaPublisherWithWriter(w, time.Second, nil)
	event := shared.NewMemberRegisteredEvent("m1", "", testAt)

	for range 3 {
		require.Error(t, p.Publish(event))
	}
	w.mu.Lock()
	before := w.fails
	w.mu.Unlock()

	err := p.Publish(event)
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	w.mu.Lock()
	assert.Equal(t, before, w.fails, "open circuit must not reach the writer")
	w.mu.Unlock()
}
