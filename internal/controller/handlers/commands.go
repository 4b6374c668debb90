package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/tutor_booking/internal/controller/state"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const helpText = "📚 Справка по командам:\n\n" +
	"Для всех:\n" +
	"/start - Начать работу с ботом\n" +
	"/myslots - Мои слоты (учитель) или записи (студент)\n" +
	"/slots <id учителя> - Свободные слоты учителя\n" +
	"/book <id слота> - Записаться на слот\n" +
	"/release <id слота> - Освободить слот\n" +
	"/chat <id пользователя> - Открыть диалог\n" +
	"/history - История текущего диалога\n" +
	"/leave - Выйти из диалога\n" +
	"/token - Токен для HTTP API\n" +
	"/cancel - Отменить текущую операцию\n\n" +
	"Для учителей:\n" +
	"/becometutor - Стать учителем\n" +
	"/schedule - Задать недельное расписание"

// HandleStart обрабатывает команду /start
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	from := update.Message.From

	// Регистрируем пользователя
	user, err := h.userService.RegisterUser(ctx, from.ID, from.Username, from.FirstName, from.LastName)
	if err != nil {
		h.logger.Error("Failed to register user", zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Произошла ошибка при регистрации. Попробуйте позже.")
		return
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID, fmt.Sprintf(
		"👋 Привет, %s!\n\n"+
			"Это бот для записи на занятия к учителям.\n"+
			"Ваш ID: %d (сообщите его собеседнику для /chat)\n\n%s",
		user.DisplayName, user.ID, helpText,
	))
}

// HandleHelp обрабатывает команду /help
func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID, helpText)
}

// HandleBecomeTutor обрабатывает команду /becometutor
func (h *Handlers) HandleBecomeTutor(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	if user.IsTutor {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "✅ Вы уже учитель. Задайте расписание: /schedule")
		return
	}

	if _, err := h.userService.MakeTutor(ctx, user.ID); err != nil {
		h.logger.Error("Failed to make tutor", zap.Int64("user_id", user.ID), zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Не удалось стать учителем. Попробуйте позже.")
		return
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID, fmt.Sprintf(
		"🎓 Теперь вы учитель!\n\nВаш ID для студентов: %d\nЗадайте расписание: /schedule", user.ID))
}

// HandleToken выдаёт токен для HTTP API
func (h *Handlers) HandleToken(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	if h.tokens == nil {
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ HTTP API отключён.")
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.logger.Error("Failed to issue token", zap.Int64("user_id", user.ID), zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Не удалось выпустить токен.")
		return
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID, "🔑 Bearer токен для API:\n\n"+token)
}

// HandleCancel обрабатывает команду /cancel - отмена текущего диалога
func (h *Handlers) HandleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	telegramID := update.Message.From.ID
	current := h.stateManager.GetState(telegramID)

	if current == state.StateNone {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "❌ Нет активных операций для отмены.")
		return
	}

	if current == state.StateChatting {
		h.leaveChat(telegramID)
	}
	h.stateManager.ClearState(telegramID)

	h.sendMessage(ctx, b, update.Message.Chat.ID, "✅ Операция отменена.\n\nИспользуйте /help для просмотра доступных команд.")
}

// HandleTextMessage обрабатывает текст без команды в зависимости от состояния пользователя
func (h *Handlers) HandleTextMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil || update.Message.Text == "" {
		return
	}

	if strings.HasPrefix(update.Message.Text, "/") {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "❓ Неизвестная команда. Список команд: /help")
		return
	}

	telegramID := update.Message.From.ID
	current := h.stateManager.GetState(telegramID)

	h.logger.Debug("Text message",
		zap.Int64("telegram_id", telegramID),
		zap.String("state", string(current)))

	switch current {
	case state.StateEnteringSchedule:
		h.handleScheduleInput(ctx, b, update, update.Message.Text)
	case state.StateChatting:
		h.handleChatText(ctx, b, update)
	default:
		h.sendMessage(ctx, b, update.Message.Chat.ID, "Используйте /help для просмотра доступных команд.")
	}
}
