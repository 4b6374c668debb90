package handlers

import (
	"github.com/Freeeeeet/tutor_booking/internal/auth"
	"github.com/Freeeeeet/tutor_booking/internal/controller/state"
	"github.com/Freeeeeet/tutor_booking/internal/fanout"
	"github.com/Freeeeeet/tutor_booking/internal/service"
	"go.uber.org/zap"
)

// Handlers содержит все зависимости для обработки команд
type Handlers struct {
	userService         *service.UserService
	scheduleService     *service.ScheduleService
	bookingService      *service.BookingService
	conversationService *service.ConversationService
	messageService      *service.MessageService
	registry            *fanout.Registry
	tokens              *auth.Tokens
	stateManager        *state.Manager
	sessions            *chatSessions
	logger              *zap.Logger
}

// Deps зависимости обработчиков
type Deps struct {
	UserService         *service.UserService
	ScheduleService     *service.ScheduleService
	BookingService      *service.BookingService
	ConversationService *service.ConversationService
	MessageService      *service.MessageService
	Registry            *fanout.Registry
	Tokens              *auth.Tokens // nil - выдача токенов API отключена
	StateManager        *state.Manager
	Logger              *zap.Logger
}

// NewHandlers создаёт новый обработчик команд
func NewHandlers(deps Deps) *Handlers {
	return &Handlers{
		userService:         deps.UserService,
		scheduleService:     deps.ScheduleService,
		bookingService:      deps.BookingService,
		conversationService: deps.ConversationService,
		messageService:      deps.MessageService,
		registry:            deps.Registry,
		tokens:              deps.Tokens,
		stateManager:        deps.StateManager,
		sessions:            newChatSessions(),
		logger:              deps.Logger,
	}
}

// Close завершает все живые подписки чатов
func (h *Handlers) Close() {
	h.sessions.closeAll(h.registry)
}
