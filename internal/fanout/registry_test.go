package fanout

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_booking/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newEvent(conversationID, messageID int64) model.MessageEvent {
	return model.MessageEvent{
		EventID:           "evt",
		ConversationID:    conversationID,
		MessageID:         messageID,
		SenderID:          1,
		SenderDisplayName: "Alice",
		Body:              "hi",
		CreatedAt:         time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestRegistry_DeliversToConversationSubscribersOnly(t *testing.T) {
	r := NewRegistry(4, zap.NewNop(), nil)

	a1 := r.Subscribe(1, 10)
	a2 := r.Subscribe(1, 11)
	b := r.Subscribe(2, 12)

	require.NoError(t, r.Publish(context.Background(), newEvent(1, 100)))

	for _, sub := range []*Subscription{a1, a2} {
		select {
		case ev := <-sub.Events():
			assert.Equal(t, int64(100), ev.MessageID)
			assert.Equal(t, "Alice", ev.SenderDisplayName)
		default:
			t.Fatalf("subscriber %s got nothing", sub.ID)
		}
	}

	select {
	case ev := <-b.Events():
		t.Fatalf("unexpected event for other conversation: %+v", ev)
	default:
	}
}

func TestRegistry_LateSubscriberMissesEarlierEvent(t *testing.T) {
	r := NewRegistry(4, zap.NewNop(), nil)

	require.NoError(t, r.Publish(context.Background(), newEvent(1, 100)))
	sub := r.Subscribe(1, 10)

	select {
	case <-sub.Events():
		t.Fatal("late subscriber must not see earlier events")
	default:
	}
}

func TestRegistry_FullBufferDropsWithoutBlocking(t *testing.T) {
	r := NewRegistry(1, zap.NewNop(), nil)
	slow := r.Subscribe(1, 10)
	fast := r.Subscribe(1, 11)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := int64(0); i < 10; i++ {
			_ = r.Publish(context.Background(), newEvent(1, i))
			<-fast.Events()
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on slow subscriber")
	}

	ev := <-slow.Events()
	assert.Equal(t, int64(0), ev.MessageID)
}

func TestRegistry_UnsubscribeClosesChannel(t *testing.T) {
	r := NewRegistry(1, zap.NewNop(), nil)
	sub := r.Subscribe(1, 10)
	assert.Equal(t, 1, r.SubscriberCount())

	r.Unsubscribe(sub)
	r.Unsubscribe(sub)

	_, ok := <-sub.Events()
	assert.False(t, ok)
	assert.Equal(t, 0, r.SubscriberCount())

	require.NoError(t, r.Publish(context.Background(), newEvent(1, 1)))
}

func TestRegistry_ConcurrentSubscribePublish(t *testing.T) {
	r := NewRegistry(8, zap.NewNop(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			sub := r.Subscribe(1, int64(i))
			r.Unsubscribe(sub)
		}(i)
		go func(i int) {
			defer wg.Done()
			_ = r.Publish(context.Background(), newEvent(1, int64(i)))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, r.SubscriberCount())
}

func TestRegistry_Close(t *testing.T) {
	r := NewRegistry(1, zap.NewNop(), nil)
	sub := r.Subscribe(3, 1)

	r.Close()

	_, ok := <-sub.Events()
	assert.False(t, ok)
	assert.Equal(t, 0, r.SubscriberCount())
}

type failingPublisher struct{ calls int }

func (f *failingPublisher) Publish(context.Context, model.MessageEvent) error {
	f.calls++
	return errors.New("broker down")
}

func TestMulti_ContinuesAfterFailure(t *testing.T) {
	r := NewRegistry(1, zap.NewNop(), nil)
	sub := r.Subscribe(1, 10)
	failing := &failingPublisher{}

	err := Multi{failing, nil, r}.Publish(context.Background(), newEvent(1, 5))

	require.Error(t, err)
	assert.Equal(t, 1, failing.calls)
	ev := <-sub.Events()
	assert.Equal(t, int64(5), ev.MessageID)
}

func TestRedisRelay_HandlePayload(t *testing.T) {
	local := NewRegistry(2, zap.NewNop(), nil)
	sub := local.Subscribe(1, 10)
	relay := NewRedisRelay(nil, "chan", local, zap.NewNop())

	own, err := json.Marshal(envelope{Origin: relay.origin, Event: newEvent(1, 1)})
	require.NoError(t, err)
	foreign, err := json.Marshal(envelope{Origin: "other-process", Event: newEvent(1, 2)})
	require.NoError(t, err)

	relay.handlePayload(context.Background(), string(own))
	relay.handlePayload(context.Background(), "not json")
	relay.handlePayload(context.Background(), string(foreign))

	ev := <-sub.Events()
	assert.Equal(t, int64(2), ev.MessageID)

	select {
	case ev := <-sub.Events():
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}

func TestEventMessage(t *testing.T) {
	event := newEvent(42, 7)
	event.EventID = "abc"

	msg, err := eventMessage(event)
	require.NoError(t, err)

	assert.Equal(t, "42", string(msg.Key))
	assert.Equal(t, event.CreatedAt, msg.Time)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "abc", string(msg.Headers[0].Value))

	var decoded model.MessageEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event.Body, decoded.Body)
	assert.Equal(t, event.ConversationID, decoded.ConversationID)
}
