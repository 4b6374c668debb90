// Package fanout доставляет события новых сообщений подписчикам диалогов:
// локально через Registry, между процессами через Redis, наружу через Kafka.
package fanout

import (
	"context"
	"sync"

	"github.com/Freeeeeet/tutor_booking/internal/metrics"
	"github.com/Freeeeeet/tutor_booking/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Subscription активная подписка на события одного диалога
type Subscription struct {
	ID             string
	ConversationID int64
	UserID         int64

	events chan model.MessageEvent
}

// Events канал событий; закрывается при отписке
func (s *Subscription) Events() <-chan model.MessageEvent {
	return s.events
}

// Registry реестр подписок: conversation id -> набор активных подписок.
// Publish никогда не блокируется на медленном подписчике.
type Registry struct {
	mu     sync.RWMutex
	subs   map[int64]map[string]*Subscription
	buffer int

	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewRegistry(buffer int, logger *zap.Logger, m *metrics.Metrics) *Registry {
	if buffer <= 0 {
		buffer = 1
	}
	return &Registry{
		subs:    make(map[int64]map[string]*Subscription),
		buffer:  buffer,
		logger:  logger,
		metrics: m,
	}
}

// Subscribe регистрирует подписчика диалога
func (r *Registry) Subscribe(conversationID, userID int64) *Subscription {
	sub := &Subscription{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		UserID:         userID,
		events:         make(chan model.MessageEvent, r.buffer),
	}

	r.mu.Lock()
	if r.subs[conversationID] == nil {
		r.subs[conversationID] = make(map[string]*Subscription)
	}
	r.subs[conversationID][sub.ID] = sub
	r.mu.Unlock()

	r.logger.Debug("Subscriber added",
		zap.String("subscription_id", sub.ID),
		zap.Int64("conversation_id", conversationID),
		zap.Int64("user_id", userID),
	)

	return sub
}

// Unsubscribe удаляет подписку и закрывает её канал. Повторный вызов безопасен.
func (r *Registry) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.subs[sub.ConversationID]
	if !ok {
		return
	}
	if _, ok := set[sub.ID]; !ok {
		return
	}

	delete(set, sub.ID)
	if len(set) == 0 {
		delete(r.subs, sub.ConversationID)
	}
	close(sub.events)

	r.logger.Debug("Subscriber removed",
		zap.String("subscription_id", sub.ID),
		zap.Int64("conversation_id", sub.ConversationID),
	)
}

// Publish отправляет событие всем текущим подписчикам диалога.
// Переполненный буфер подписчика означает потерю события для него.
func (r *Registry) Publish(_ context.Context, event model.MessageEvent) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, sub := range r.subs[event.ConversationID] {
		select {
		case sub.events <- event:
			r.metrics.ObserveDelivery(true)
		default:
			r.metrics.ObserveDelivery(false)
			r.logger.Warn("Subscriber buffer full, event dropped",
				zap.String("subscription_id", sub.ID),
				zap.Int64("conversation_id", event.ConversationID),
				zap.Int64("message_id", event.MessageID),
			)
		}
	}

	return nil
}

// SubscriberCount количество активных подписок
func (r *Registry) SubscriberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, set := range r.subs {
		n += len(set)
	}
	return n
}

// Close отписывает всех подписчиков
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, set := range r.subs {
		for _, sub := range set {
			close(sub.events)
		}
		delete(r.subs, id)
	}
}
