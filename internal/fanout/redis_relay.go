package fanout

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Freeeeeet/tutor_booking/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type envelope struct {
	Origin string             `json:"origin"`
	Event  model.MessageEvent `json:"event"`
}

// RedisRelay пересылает события между процессами через Redis pub/sub.
// Свои события процесс доставляет локально сам, поэтому из канала их пропускает.
type RedisRelay struct {
	client  *redis.Client
	channel string
	origin  string
	local   *Registry
	logger  *zap.Logger
}

func NewRedisRelay(client *redis.Client, channel string, local *Registry, logger *zap.Logger) *RedisRelay {
	return &RedisRelay{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		local:   local,
		logger:  logger,
	}
}

// Publish отправляет событие в канал Redis
func (r *RedisRelay) Publish(ctx context.Context, event model.MessageEvent) error {
	payload, err := json.Marshal(envelope{Origin: r.origin, Event: event})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}

	return nil
}

// Run подписывается на канал и доставляет чужие события локальным подписчикам до отмены ctx
func (r *RedisRelay) Run(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}

	r.logger.Info("Redis relay started", zap.String("channel", r.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Redis relay stopped")
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.handlePayload(ctx, msg.Payload)
		}
	}
}

func (r *RedisRelay) handlePayload(ctx context.Context, payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		r.logger.Warn("Invalid relay payload", zap.Error(err))
		return
	}

	if env.Origin == r.origin {
		return
	}

	if err := r.local.Publish(ctx, env.Event); err != nil {
		r.logger.Warn("Failed to deliver relayed event",
			zap.Int64("conversation_id", env.Event.ConversationID),
			zap.Error(err))
	}
}
