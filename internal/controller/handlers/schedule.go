package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/tutor_booking/internal/controller/callbacks/keyboard"
	"github.com/Freeeeeet/tutor_booking/internal/controller/formatting"
	"github.com/Freeeeeet/tutor_booking/internal/controller/state"
	"github.com/Freeeeeet/tutor_booking/internal/model"
	"github.com/Freeeeeet/tutor_booking/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const maxListedSlots = 40

// HandleSchedule обрабатывает команду /schedule.
// Сетку можно прислать сразу в том же сообщении или следующим.
func (h *Handlers) HandleSchedule(ctx context.Context, b *bot.Bot, update *models.Update) {
	if _, ok := h.requireTutor(ctx, b, update); !ok {
		return
	}

	if body := commandBody(update.Message.Text); body != "" {
		h.handleScheduleInput(ctx, b, update, body)
		return
	}

	h.stateManager.SetState(update.Message.From.ID, state.StateEnteringSchedule)
	h.sendMessage(ctx, b, update.Message.Chat.ID, "🗓 Пришлите недельное расписание.\n\n"+scheduleFormatHelp+"\n\nОтмена: /cancel")
}

func (h *Handlers) handleScheduleInput(ctx context.Context, b *bot.Bot, update *models.Update, text string) {
	user, ok := h.requireTutor(ctx, b, update)
	if !ok {
		return
	}

	h.stateManager.ClearState(update.Message.From.ID)

	result, err := h.scheduleService.GenerateSchedule(ctx, user.ID, parseGridText(text))
	if err != nil {
		h.logger.Error("Failed to generate schedule", zap.Int64("user_id", user.ID), zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Не удалось сохранить расписание. Попробуйте позже.")
		return
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID, fmt.Sprintf(
		"✅ Расписание обновлено\n\nСоздано: %d %s\nПропущено: %d\nУдалено свободных: %d\n\nПосмотреть: /myslots",
		result.Created, formatting.PluralizeSlots(result.Created), result.Skipped, result.RemovedOpen,
	))
}

// HandleMySlots обрабатывает команду /myslots [ГГГГ-ММ-ДД]
func (h *Handlers) HandleMySlots(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	slots, err := h.bookingService.ListSlots(ctx, user.ID, user.Role())
	if err != nil {
		h.logger.Error("Failed to list slots", zap.Int64("user_id", user.ID), zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Не удалось загрузить слоты.")
		return
	}

	if len(slots) == 0 {
		if user.IsTutor {
			h.sendMessage(ctx, b, update.Message.Chat.ID, "📭 Слотов нет. Задайте расписание: /schedule")
		} else {
			h.sendMessage(ctx, b, update.Message.Chat.ID, "📭 У вас нет записей. Свободные слоты учителя: /slots <id>")
		}
		return
	}

	title := "📅 Ваши записи"
	if user.IsTutor {
		title = "🗓 Ваши слоты"
	}
	text := formatSlotList(title, slots)

	if !user.IsTutor {
		h.sendWithKeyboard(ctx, b, update.Message.Chat.ID, text, keyboard.ReleaseButtons(slots))
		return
	}

	week := h.weekToShow(update.Message.Text, slots)
	image, err := formatting.GenerateWeekImage(week, slots, h.studentNames(ctx, slots), time.Now())
	if err != nil {
		h.logger.Warn("Failed to render week image", zap.Error(err))
		h.sendMessage(ctx, b, update.Message.Chat.ID, text)
		return
	}

	_, err = b.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID: update.Message.Chat.ID,
		Photo:  &models.InputFileUpload{Filename: "week.png", Data: bytes.NewReader(image)},
	})
	if err != nil {
		h.logger.Warn("Failed to send week image", zap.Error(err))
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID, text)
}

// HandleTutorSlots обрабатывает команду /slots <id учителя>
func (h *Handlers) HandleTutorSlots(ctx context.Context, b *bot.Bot, update *models.Update) {
	if _, ok := h.requireUser(ctx, b, update); !ok {
		return
	}

	tutorID, ok := parseIDArg(update.Message.Text)
	if !ok {
		h.sendError(ctx, b, update.Message.Chat.ID, "Использование: /slots <id учителя>")
		return
	}

	slots, err := h.bookingService.ListOpenSlots(ctx, tutorID)
	if err != nil {
		h.logger.Error("Failed to list open slots", zap.Int64("tutor_id", tutorID), zap.Error(err))
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Не удалось загрузить слоты.")
		return
	}

	if len(slots) == 0 {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "📭 У учителя нет свободных слотов.")
		return
	}

	h.sendWithKeyboard(ctx, b, update.Message.Chat.ID,
		formatSlotList("🟢 Свободные слоты", slots)+"\n\nЗаписаться: кнопкой или /book <id слота>",
		keyboard.BookButtons(slots))
}

// weekToShow неделя из аргумента команды, иначе неделя ближайшего будущего слота
func (h *Handlers) weekToShow(text string, slots []*model.TimeSlot) model.Day {
	if args := commandArgs(text); len(args) > 0 {
		if d, err := model.ParseDay(args[0]); err == nil {
			return d
		}
	}

	today := model.DayOf(time.Now())
	for _, slot := range slots {
		if !slot.Day.Before(today) {
			return slot.Day
		}
	}
	return today
}

func (h *Handlers) studentNames(ctx context.Context, slots []*model.TimeSlot) map[int64]string {
	names := make(map[int64]string)
	for _, slot := range slots {
		if slot.StudentID == nil {
			continue
		}
		if _, done := names[*slot.StudentID]; done {
			continue
		}
		student, err := h.userService.GetByID(ctx, *slot.StudentID)
		if err != nil || student == nil {
			names[*slot.StudentID] = ""
			continue
		}
		names[*slot.StudentID] = student.DisplayName
	}
	return names
}

func formatSlotList(title string, slots []*model.TimeSlot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%d):\n\n", title, len(slots))

	for i, slot := range slots {
		if i == maxListedSlots {
			fmt.Fprintf(&sb, "... и ещё %d", len(slots)-maxListedSlots)
			break
		}
		sb.WriteString(formatting.FormatSlot(slot))
		sb.WriteString("\n")
	}

	return sb.String()
}

// serviceErrorText текст для пользователя по доменной ошибке
func serviceErrorText(err error) string {
	switch {
	case errors.Is(err, service.ErrSlotNotFound):
		return "❌ Слот не найден."
	case errors.Is(err, service.ErrUserNotFound):
		return "❌ Пользователь не найден."
	case errors.Is(err, service.ErrSelfConversation):
		return "❌ Нельзя открыть диалог с самим собой."
	case errors.Is(err, service.ErrConversationNotFound):
		return "❌ Диалог не найден."
	case errors.Is(err, service.ErrNotParticipant):
		return "❌ Вы не участник этого диалога."
	case errors.Is(err, service.ErrEmptyMessage):
		return "❌ Пустое сообщение."
	case errors.Is(err, service.ErrPersistFailed):
		return "❌ Сервис временно недоступен. Попробуйте позже."
	default:
		return "❌ Произошла ошибка. Попробуйте позже."
	}
}
