package handlers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Freeeeeet/tutor_booking/internal/controller/formatting"
	"github.com/Freeeeeet/tutor_booking/internal/controller/state"
	"github.com/Freeeeeet/tutor_booking/internal/fanout"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const historyLimit = 20

// chatSessions живые подписки Telegram-чатов на диалоги
type chatSessions struct {
	mu   sync.Mutex
	subs map[int64]*fanout.Subscription // telegramID -> подписка
}

func newChatSessions() *chatSessions {
	return &chatSessions{subs: make(map[int64]*fanout.Subscription)}
}

// swap ставит новую подписку и возвращает предыдущую
func (s *chatSessions) swap(telegramID int64, sub *fanout.Subscription) *fanout.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.subs[telegramID]
	if sub == nil {
		delete(s.subs, telegramID)
	} else {
		s.subs[telegramID] = sub
	}
	return prev
}

func (s *chatSessions) closeAll(registry *fanout.Registry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, sub := range s.subs {
		registry.Unsubscribe(sub)
		delete(s.subs, id)
	}
}

// HandleChat обрабатывает команду /chat <id пользователя>
func (h *Handlers) HandleChat(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	peerID, ok := parseIDArg(update.Message.Text)
	if !ok {
		h.sendError(ctx, b, update.Message.Chat.ID, "Использование: /chat <id пользователя>")
		return
	}

	conv, err := h.conversationService.OpenConversation(ctx, user.ID, peerID)
	if err != nil {
		h.logger.Warn("Failed to open conversation", zap.Int64("user_id", user.ID), zap.Int64("peer_id", peerID), zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, serviceErrorText(err))
		return
	}

	peerName := fmt.Sprintf("#%d", peerID)
	if peer, err := h.userService.GetByID(ctx, peerID); err == nil && peer != nil {
		peerName = peer.DisplayName
	}

	telegramID := update.Message.From.ID
	sub := h.registry.Subscribe(conv.ID, user.ID)
	if prev := h.sessions.swap(telegramID, sub); prev != nil {
		h.registry.Unsubscribe(prev)
	}

	h.stateManager.Set(telegramID, state.UserData{
		State:          state.StateChatting,
		ConversationID: conv.ID,
		PeerName:       peerName,
	})

	go h.forwardEvents(ctx, b, update.Message.Chat.ID, user.ID, sub)

	h.sendMessage(ctx, b, update.Message.Chat.ID, fmt.Sprintf(
		"💬 Диалог с %s открыт.\n\nПишите сообщения обычным текстом.\nИстория: /history\nВыйти: /leave", peerName))
}

// forwardEvents пересылает в Telegram сообщения собеседника до отписки
func (h *Handlers) forwardEvents(ctx context.Context, b *bot.Bot, chatID, userID int64, sub *fanout.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if event.SenderID == userID {
				continue
			}
			h.sendMessage(ctx, b, chatID, fmt.Sprintf("💬 %s:\n%s", event.SenderDisplayName, event.Body))
		}
	}
}

func (h *Handlers) handleChatText(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	telegramID := update.Message.From.ID
	data := h.stateManager.Get(telegramID)

	if _, err := h.messageService.SendMessage(ctx, data.ConversationID, user.ID, update.Message.Text); err != nil {
		h.logger.Warn("Failed to send message",
			zap.Int64("conversation_id", data.ConversationID),
			zap.Int64("user_id", user.ID),
			zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, serviceErrorText(err))
		return
	}

	h.stateManager.Touch(telegramID)
}

// HandleHistory обрабатывает команду /history
func (h *Handlers) HandleHistory(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	data := h.stateManager.Get(update.Message.From.ID)
	if data.State != state.StateChatting {
		h.sendError(ctx, b, update.Message.Chat.ID, "Сначала откройте диалог: /chat <id пользователя>")
		return
	}

	messages, err := h.messageService.FetchHistory(ctx, data.ConversationID, user.ID)
	if err != nil {
		h.sendError(ctx, b, update.Message.Chat.ID, serviceErrorText(err))
		return
	}

	if len(messages) == 0 {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "📭 В диалоге пока нет сообщений.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🗂 Диалог с %s: %d %s\n\n", data.PeerName, len(messages), formatting.PluralizeMessages(len(messages)))

	if len(messages) > historyLimit {
		messages = messages[len(messages)-historyLimit:]
	}
	for _, msg := range messages {
		author := data.PeerName
		if msg.SenderID == user.ID {
			author = "Вы"
		}
		fmt.Fprintf(&sb, "[%s] %s: %s\n", formatting.FormatDateTime(msg.CreatedAt), author, msg.Body)
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID, sb.String())
}

// HandleLeave обрабатывает команду /leave
func (h *Handlers) HandleLeave(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	telegramID := update.Message.From.ID
	if h.stateManager.GetState(telegramID) != state.StateChatting {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "ℹ️ Нет открытого диалога.")
		return
	}

	h.leaveChat(telegramID)
	h.stateManager.ClearState(telegramID)

	h.sendMessage(ctx, b, update.Message.Chat.ID, "👋 Вы вышли из диалога.")
}

func (h *Handlers) leaveChat(telegramID int64) {
	if sub := h.sessions.swap(telegramID, nil); sub != nil {
		h.registry.Unsubscribe(sub)
	}
}
