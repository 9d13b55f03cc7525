package messaging

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internhub/internhub/internal/domain/application"
	"github.com/internhub/internhub/internal/domain/shared"
)

func testEvent() shared.Event {
	app := &application.Application{
		ID:        "a0000000-0000-0000-0000-000000000001",
		StudentID: "10000000-0000-0000-0000-000000000001",
		OfferID:   "50000000-0000-0000-0000-000000000001",
	}
	return application.NewSubmittedEvent(app, "20000000-0000-0000-0000-000000000001")
}

type observed struct {
	mu     sync.Mutex
	events []shared.EventType
	errs   int
}

func (o *observed) EventHandled(t shared.EventType, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, t)
	if err != nil {
		o.errs++
	}
}

func TestInMemoryEventBus_SyncDelivery(t *testing.T) {
	obs := &observed{}
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{Observer: obs})

	var typed, all int
	require.NoError(t, bus.Subscribe(shared.EventApplicationSubmitted, func(shared.Event) error {
		typed++
		return nil
	}))
	require.NoError(t, bus.Subscribe(shared.EventApplicationRejected, func(shared.Event) error {
		t.Fatal("unexpected handler")
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		all++
		return errors.New("ignored")
	}))

	require.NoError(t, bus.Publish(testEvent()))

	assert.Equal(t, 1, typed)
	assert.Equal(t, 1, all)
	assert.Len(t, obs.events, 2)
	assert.Equal(t, 1, obs.errs)
}

func TestInMemoryEventBus_AsyncDrainsOnClose(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: true, WorkerPoolSize: 2})

	var handled atomic.Int32
	require.NoError(t, bus.Subscribe(shared.EventApplicationSubmitted, func(shared.Event) error {
		time.Sleep(5 * time.Millisecond)
		handled.Add(1)
		return nil
	}))

	for i := 0; i < 10; i++ {
		require.NoError(t, bus.Publish(testEvent()))
	}
	require.NoError(t, bus.Close())

	assert.Equal(t, int32(10), handled.Load())
	assert.ErrorIs(t, bus.Publish(testEvent()), ErrEventBusClosed)
	assert.ErrorIs(t, bus.Subscribe(shared.EventApplicationSubmitted, func(shared.Event) error { return nil }), ErrEventBusClosed)
}

func TestInMemoryEventBus_RecoversPanics(t *testing.T) {
	obs := &observed{}
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{Observer: obs})

	var after bool
	require.NoError(t, bus.Subscribe(shared.EventApplicationSubmitted, func(shared.Event) error {
		panic("boom")
	}))
	require.NoError(t, bus.Subscribe(shared.EventApplicationSubmitted, func(shared.Event) error {
		after = true
		return nil
	}))

	assert.NoError(t, bus.Publish(testEvent()))
	assert.True(t, after)
	assert.Equal(t, 1, obs.errs)
}

func TestInMemoryEventBus_RejectsNil(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{})

	assert.ErrorIs(t, bus.Subscribe(shared.EventApplicationSubmitted, nil), ErrNilHandler)
	assert.ErrorIs(t, bus.SubscribeAll(nil), ErrNilHandler)
	assert.ErrorIs(t, bus.Publish(nil), ErrNilEvent)
}

// ─────────────────────────────────────────────────────────────────────────────
// Redis bus over an in-process broker
// ─────────────────────────────────────────────────────────────────────────────

type fakeBroker struct {
	mu          sync.Mutex
	subscribers []chan RedisMessage
	failPublish bool
}

func (b *fakeBroker) client() *fakeClient { return &fakeClient{broker: b} }

type fakeClient struct {
	broker *fakeBroker
}

func (c *fakeClient) Publish(_ context.Context, channel, message string) error {
	c.broker.mu.Lock()
	defer c.broker.mu.Unlock()
	if c.broker.failPublish {
		return errors.New("redis down")
	}
	for _, sub := range c.broker.subscribers {
		sub <- RedisMessage{Channel: channel, Payload: message}
	}
	return nil
}

func (c *fakeClient) Subscribe(_ context.Context, _ string) (<-chan RedisMessage, error) {
	ch := make(chan RedisMessage, 16)
	c.broker.mu.Lock()
	c.broker.subscribers = append(c.broker.subscribers, ch)
	c.broker.mu.Unlock()
	return ch, nil
}

func newRedisBus(t *testing.T, broker *fakeBroker, id string) *RedisEventBus {
	t.Helper()
	bus, err := NewRedisEventBus(RedisEventBusConfig{Client: broker.client(), InstanceID: id})
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

func TestRedisEventBus_FansOutToOtherInstances(t *testing.T) {
	broker := &fakeBroker{}
	a := newRedisBus(t, broker, "instance-a")
	b := newRedisBus(t, broker, "instance-b")

	var localCount atomic.Int32
	require.NoError(t, a.Subscribe(shared.EventApplicationSubmitted, func(shared.Event) error {
		localCount.Add(1)
		return nil
	}))

	remote := make(chan shared.Event, 1)
	require.NoError(t, b.Subscribe(shared.EventApplicationSubmitted, func(e shared.Event) error {
		remote <- e
		return nil
	}))

	original := testEvent()
	require.NoError(t, a.Publish(original))

	select {
	case got := <-remote:
		assert.Equal(t, original.EventType(), got.EventType())
		assert.Equal(t, original.AggregateID(), got.AggregateID())
		assert.Equal(t, "20000000-0000-0000-0000-000000000001", shared.PayloadString(got, "company_id"))
		assert.True(t, original.OccurredAt().Equal(got.OccurredAt()))
	case <-time.After(2 * time.Second):
		t.Fatal("remote instance did not receive the event")
	}

	// The publisher sees its own event once, through local delivery only.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), localCount.Load())
}

func TestRedisEventBus_DeliversLocallyWhenRedisFails(t *testing.T) {
	broker := &fakeBroker{failPublish: true}
	bus := newRedisBus(t, broker, "instance-a")

	var handled bool
	require.NoError(t, bus.Subscribe(shared.EventApplicationSubmitted, func(shared.Event) error {
		handled = true
		return nil
	}))

	require.NoError(t, bus.Publish(testEvent()))
	assert.True(t, handled)
}

func TestRedisEventBus_IgnoresMalformedMessages(t *testing.T) {
	broker := &fakeBroker{}
	bus := newRedisBus(t, broker, "instance-a")

	var handled atomic.Bool
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		handled.Store(true)
		return nil
	}))

	require.NoError(t, broker.client().Publish(context.Background(), "internhub:events", "{not json"))
	time.Sleep(20 * time.Millisecond)
	assert.False(t, handled.Load())
}

func TestRedisEventBus_RequiresClient(t *testing.T) {
	_, err := NewRedisEventBus(RedisEventBusConfig{})
	assert.Error(t, err)
}

func TestLocalOnly_SkipsReplayedEvents(t *testing.T) {
	var calls int
	handler := LocalOnly(func(shared.Event) error {
		calls++
		return nil
	})

	require.NoError(t, handler(testEvent()))
	require.NoError(t, handler(shared.GenericEvent{
		BaseEvent: shared.BaseEvent{Type: shared.EventApplicationSubmitted},
	}))
	assert.Equal(t, 1, calls)
}
