package service

import (
	"context"

	"github.com/Freeeeeet/tutor_booking/internal/model"
)

// SlotStore хранилище слотов.
// AssignStudent и ClearStudent - атомарные условные обновления: проверка состояния
// и запись выполняются одной операцией хранилища.
type SlotStore interface {
	// ReplaceOpenSlots в одной транзакции удаляет свободные слоты владельца и вставляет новые.
	// Слоты, совпадающие с уже существующими (day, start, end), не вставляются.
	ReplaceOpenSlots(ctx context.Context, ownerID int64, slots []*model.TimeSlot) (inserted []*model.TimeSlot, deleted int64, err error)
	GetByID(ctx context.Context, id int64) (*model.TimeSlot, error)
	// AssignStudent занимает слот если он свободен и studentID не владелец; nil если условие не выполнено
	AssignStudent(ctx context.Context, slotID, studentID int64) (*model.TimeSlot, error)
	// ClearStudent освобождает слот если он занят и actorID владелец или текущий студент; nil если условие не выполнено
	ClearStudent(ctx context.Context, slotID, actorID int64) (*model.TimeSlot, error)
	ListByOwner(ctx context.Context, ownerID int64, onlyOpen bool) ([]*model.TimeSlot, error)
	ListByStudent(ctx context.Context, studentID int64) ([]*model.TimeSlot, error)
	CountByState(ctx context.Context) (open, booked int64, err error)
}

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
}

// ConversationStore хранилище диалогов с уникальностью канонической пары
type ConversationStore interface {
	// GetOrCreate атомарно вставляет пару (a < b) если её нет и возвращает запись
	GetOrCreate(ctx context.Context, participantA, participantB int64) (conv *model.Conversation, created bool, err error)
	GetByID(ctx context.Context, id int64) (*model.Conversation, error)
	ListByParticipant(ctx context.Context, userID int64) ([]*model.Conversation, error)
}

type MessageStore interface {
	// Create сохраняет сообщение и заполняет ID и CreatedAt
	Create(ctx context.Context, msg *model.Message) error
	ListByConversation(ctx context.Context, conversationID int64) ([]*model.Message, error)
}

// Notifier доставляет событие подписчикам диалога
type Notifier interface {
	Publish(ctx context.Context, event model.MessageEvent) error
}
