package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/tutor_booking/internal/metrics"
	"github.com/Freeeeeet/tutor_booking/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type MessageService struct {
	userRepo         UserStore
	conversationRepo ConversationStore
	messageRepo      MessageStore
	notifier         Notifier
	logger           *zap.Logger
	metrics          *metrics.Metrics
}

func NewMessageService(
	userRepo UserStore,
	conversationRepo ConversationStore,
	messageRepo MessageStore,
	notifier Notifier,
	logger *zap.Logger,
	m *metrics.Metrics,
) *MessageService {
	return &MessageService{
		userRepo:         userRepo,
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		notifier:         notifier,
		logger:           logger,
		metrics:          m,
	}
}

// SendMessage сохраняет сообщение и только после успешной записи рассылает событие подписчикам.
// Ошибка доставки не отменяет сохранённое сообщение.
func (s *MessageService) SendMessage(ctx context.Context, conversationID, senderID int64, body string) (*model.Message, error) {
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyMessage
	}

	if _, err := s.participantConversation(ctx, conversationID, senderID); err != nil {
		return nil, err
	}

	sender, err := s.userRepo.GetByID(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("get sender: %w: %w", ErrPersistFailed, err)
	}

	msg := &model.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
	}

	if err := s.messageRepo.Create(ctx, msg); err != nil {
		s.logger.Error("Failed to persist message",
			zap.Int64("conversation_id", conversationID),
			zap.Int64("sender_id", senderID),
			zap.Error(err))
		return nil, fmt.Errorf("create message: %w: %w", ErrPersistFailed, err)
	}

	s.metrics.ObserveMessage()

	event := model.MessageEvent{
		EventID:           uuid.NewString(),
		ConversationID:    conversationID,
		MessageID:         msg.ID,
		SenderID:          senderID,
		SenderDisplayName: displayName(sender, senderID),
		Body:              msg.Body,
		CreatedAt:         msg.CreatedAt,
	}

	// Сообщение уже сохранено: отмена запроса не должна терять событие
	if err := s.notifier.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("Failed to publish message event",
			zap.Int64("conversation_id", conversationID),
			zap.Int64("message_id", msg.ID),
			zap.Error(err))
	}

	s.logger.Debug("Message sent",
		zap.Int64("conversation_id", conversationID),
		zap.Int64("message_id", msg.ID),
		zap.Int64("sender_id", senderID),
	)

	return msg, nil
}

// FetchHistory возвращает все сообщения диалога в порядке (created_at, id)
func (s *MessageService) FetchHistory(ctx context.Context, conversationID, userID int64) ([]*model.Message, error) {
	if _, err := s.participantConversation(ctx, conversationID, userID); err != nil {
		return nil, err
	}

	messages, err := s.messageRepo.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w: %w", ErrPersistFailed, err)
	}

	return messages, nil
}

func (s *MessageService) participantConversation(ctx context.Context, conversationID, userID int64) (*model.Conversation, error) {
	conv, err := s.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w: %w", ErrPersistFailed, err)
	}

	if conv == nil {
		return nil, ErrConversationNotFound
	}

	if !conv.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}

	return conv, nil
}

func displayName(user *model.User, id int64) string {
	if user == nil || user.DisplayName == "" {
		return fmt.Sprintf("user #%d", id)
	}
	return user.DisplayName
}
