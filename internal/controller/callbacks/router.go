// Package callbacks обрабатывает нажатия inline-кнопок под списками слотов.
package callbacks

import (
	"context"
	"errors"
	"strings"

	"github.com/Freeeeeet/tutor_booking/internal/controller/callbacks/keyboard"
	"github.com/Freeeeeet/tutor_booking/internal/controller/formatting"
	"github.com/Freeeeeet/tutor_booking/internal/model"
	"github.com/Freeeeeet/tutor_booking/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Handler содержит зависимости callback handlers
type Handler struct {
	userService    *service.UserService
	bookingService *service.BookingService
	logger         *zap.Logger
}

func NewHandler(userService *service.UserService, bookingService *service.BookingService, logger *zap.Logger) *Handler {
	return &Handler{
		userService:    userService,
		bookingService: bookingService,
		logger:         logger,
	}
}

// HandleCallbackQuery точка входа для всех callback query
func (h *Handler) HandleCallbackQuery(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	h.Route(ctx, b, update.CallbackQuery)
}

// Route распределяет callback query по обработчикам
func (h *Handler) Route(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery) {
	data := callback.Data

	h.logger.Debug("Routing callback",
		zap.String("data", data),
		zap.Int64("telegram_id", callback.From.ID))

	switch {
	case data == keyboard.Noop:
		AnswerCallback(ctx, b, callback.ID, "")
	case strings.HasPrefix(data, keyboard.BookSlot):
		h.handleBook(ctx, b, callback)
	case strings.HasPrefix(data, keyboard.ReleaseSlot):
		h.handleRelease(ctx, b, callback)
	default:
		h.logger.Warn("Unknown callback", zap.String("data", data))
		AnswerCallbackAlert(ctx, b, callback.ID, "❌ Неизвестное действие")
	}
}

func (h *Handler) handleBook(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery) {
	user, slotID, ok := h.resolve(ctx, b, callback)
	if !ok {
		return
	}

	outcome, err := h.bookingService.ClaimSlot(ctx, slotID, user.ID)
	if err != nil {
		h.answerError(ctx, b, callback, slotID, err)
		return
	}

	switch outcome {
	case service.ClaimSuccess:
		AnswerCallback(ctx, b, callback.ID, "✅ Вы записаны")
		h.notify(ctx, b, callback, slotID, "✅ Вы записаны!")
	case service.ClaimAlreadyBooked:
		AnswerCallbackAlert(ctx, b, callback.ID, "⛔ Слот уже занят")
	case service.ClaimOwnerCannotClaim:
		AnswerCallbackAlert(ctx, b, callback.ID, "⛔ Нельзя записаться на собственный слот")
	}
}

func (h *Handler) handleRelease(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery) {
	user, slotID, ok := h.resolve(ctx, b, callback)
	if !ok {
		return
	}

	outcome, err := h.bookingService.ReleaseSlot(ctx, slotID, user.ID)
	if err != nil {
		h.answerError(ctx, b, callback, slotID, err)
		return
	}

	switch outcome {
	case service.ReleaseSuccess:
		AnswerCallback(ctx, b, callback.ID, "✅ Слот освобождён")
		h.notify(ctx, b, callback, slotID, "↩️ Слот освобождён.")
	case service.ReleaseNotBooked:
		AnswerCallbackAlert(ctx, b, callback.ID, "ℹ️ Слот и так свободен")
	case service.ReleaseUnauthorized:
		AnswerCallbackAlert(ctx, b, callback.ID, "⛔ Нет прав освободить этот слот")
	}
}

// resolve находит пользователя и ID слота из callback data
func (h *Handler) resolve(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery) (*model.User, int64, bool) {
	slotID, err := ParseIDFromCallback(callback.Data)
	if err != nil {
		h.logger.Warn("Failed to parse callback", zap.String("data", callback.Data), zap.Error(err))
		AnswerCallbackAlert(ctx, b, callback.ID, "❌ Неверный формат")
		return nil, 0, false
	}

	user, err := h.userService.GetByTelegramID(ctx, callback.From.ID)
	if err != nil {
		h.logger.Error("Failed to get user", zap.Int64("telegram_id", callback.From.ID), zap.Error(err))
		AnswerCallbackAlert(ctx, b, callback.ID, "❌ Ошибка получения пользователя")
		return nil, 0, false
	}
	if user == nil {
		AnswerCallbackAlert(ctx, b, callback.ID, "❌ Используйте /start для регистрации")
		return nil, 0, false
	}

	return user, slotID, true
}

func (h *Handler) answerError(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, slotID int64, err error) {
	if errors.Is(err, service.ErrSlotNotFound) {
		AnswerCallbackAlert(ctx, b, callback.ID, "❌ Слот не найден")
		return
	}

	h.logger.Error("Slot callback failed", zap.Int64("slot_id", slotID), zap.Error(err))
	AnswerCallbackAlert(ctx, b, callback.ID, "❌ Произошла ошибка. Попробуйте позже.")
}

// notify отправляет подтверждение с описанием слота в чат с кнопками
func (h *Handler) notify(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, slotID int64, title string) {
	msg := GetMessageFromCallback(callback)
	if msg == nil {
		return
	}

	text := title
	if slot, err := h.bookingService.GetSlot(ctx, slotID); err == nil {
		text += "\n\n" + formatting.FormatSlot(slot)
	}

	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: msg.Chat.ID, Text: text}); err != nil {
		h.logger.Error("Failed to send message", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
	}
}
