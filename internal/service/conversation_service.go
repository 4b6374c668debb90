package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_booking/internal/metrics"
	"github.com/Freeeeeet/tutor_booking/internal/model"
	"go.uber.org/zap"
)

type ConversationService struct {
	userRepo         UserStore
	conversationRepo ConversationStore
	logger           *zap.Logger
	metrics          *metrics.Metrics
}

func NewConversationService(
	userRepo UserStore,
	conversationRepo ConversationStore,
	logger *zap.Logger,
	m *metrics.Metrics,
) *ConversationService {
	return &ConversationService{
		userRepo:         userRepo,
		conversationRepo: conversationRepo,
		logger:           logger,
		metrics:          m,
	}
}

// OpenConversation возвращает единственный диалог для неупорядоченной пары пользователей,
// создавая его при первом контакте. Конкурентные вызовы сходятся к одной записи
// за счёт уникального ограничения на (participant_a, participant_b).
func (s *ConversationService) OpenConversation(ctx context.Context, userX, userY int64) (*model.Conversation, error) {
	if userX == userY {
		return nil, ErrSelfConversation
	}

	for _, id := range []int64{userX, userY} {
		user, err := s.userRepo.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get user: %w: %w", ErrPersistFailed, err)
		}
		if user == nil {
			return nil, fmt.Errorf("user %d: %w", id, ErrUserNotFound)
		}
	}

	a, b := model.CanonicalPair(userX, userY)

	conv, created, err := s.conversationRepo.GetOrCreate(ctx, a, b)
	if err != nil {
		s.logger.Error("Failed to resolve conversation",
			zap.Int64("participant_a", a),
			zap.Int64("participant_b", b),
			zap.Error(err))
		return nil, fmt.Errorf("get or create conversation: %w: %w", ErrPersistFailed, err)
	}

	s.metrics.ObserveConversation(created)

	if created {
		s.logger.Info("Conversation created",
			zap.Int64("conversation_id", conv.ID),
			zap.Int64("participant_a", a),
			zap.Int64("participant_b", b),
		)
	}

	return conv, nil
}

// GetConversation получает диалог, доступный только участникам
func (s *ConversationService) GetConversation(ctx context.Context, conversationID, userID int64) (*model.Conversation, error) {
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

// ListConversations диалоги пользователя
func (s *ConversationService) ListConversations(ctx context.Context, userID int64) ([]*model.Conversation, error) {
	convs, err := s.conversationRepo.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w: %w", ErrPersistFailed, err)
	}
	return convs, nil
}
