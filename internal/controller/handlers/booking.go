package handlers

import (
	"context"

	"github.com/Freeeeeet/tutor_booking/internal/controller/formatting"
	"github.com/Freeeeeet/tutor_booking/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleBook обрабатывает команду /book <id слота>
func (h *Handlers) HandleBook(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	slotID, ok := parseIDArg(update.Message.Text)
	if !ok {
		h.sendError(ctx, b, update.Message.Chat.ID, "Использование: /book <id слота>")
		return
	}

	outcome, err := h.bookingService.ClaimSlot(ctx, slotID, user.ID)
	if err != nil {
		h.logger.Warn("Claim failed", zap.Int64("slot_id", slotID), zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, serviceErrorText(err))
		return
	}

	switch outcome {
	case service.ClaimSuccess:
		slot, err := h.bookingService.GetSlot(ctx, slotID)
		if err != nil {
			h.sendMessage(ctx, b, update.Message.Chat.ID, "✅ Вы записаны!")
			return
		}
		h.sendMessage(ctx, b, update.Message.Chat.ID, "✅ Вы записаны!\n\n"+formatting.FormatSlot(slot))
	case service.ClaimAlreadyBooked:
		h.sendMessage(ctx, b, update.Message.Chat.ID, "⛔ Слот уже занят.")
	case service.ClaimOwnerCannotClaim:
		h.sendMessage(ctx, b, update.Message.Chat.ID, "⛔ Нельзя записаться на собственный слот.")
	}
}

// HandleRelease обрабатывает команду /release <id слота>
func (h *Handlers) HandleRelease(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	slotID, ok := parseIDArg(update.Message.Text)
	if !ok {
		h.sendError(ctx, b, update.Message.Chat.ID, "Использование: /release <id слота>")
		return
	}

	outcome, err := h.bookingService.ReleaseSlot(ctx, slotID, user.ID)
	if err != nil {
		h.logger.Warn("Release failed", zap.Int64("slot_id", slotID), zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, serviceErrorText(err))
		return
	}

	switch outcome {
	case service.ReleaseSuccess:
		h.sendMessage(ctx, b, update.Message.Chat.ID, "✅ Слот освобождён.")
	case service.ReleaseNotBooked:
		h.sendMessage(ctx, b, update.Message.Chat.ID, "ℹ️ Слот и так свободен.")
	case service.ReleaseUnauthorized:
		h.sendMessage(ctx, b, update.Message.Chat.ID, "⛔ Освободить слот может только учитель или записанный студент.")
	}
}
