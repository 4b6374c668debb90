package keyboard

import (
	"fmt"

	"github.com/Freeeeeet/tutor_booking/internal/controller/formatting"
	"github.com/Freeeeeet/tutor_booking/internal/model"
	"github.com/go-telegram/bot/models"
)

// Префиксы callback data
const (
	BookSlot    = "book:"    // book:slot_id
	ReleaseSlot = "release:" // release:slot_id
	Noop        = "noop"
)

// Telegram ограничивает размер клавиатуры; длинные списки режем
const maxSlotButtons = 20

// Builder упрощает создание inline клавиатур
type Builder struct {
	rows [][]models.InlineKeyboardButton
}

// NewBuilder создаёт новый builder клавиатуры
func NewBuilder() *Builder {
	return &Builder{
		rows: make([][]models.InlineKeyboardButton, 0),
	}
}

// Row добавляет новый ряд кнопок
func (b *Builder) Row(buttons ...models.InlineKeyboardButton) *Builder {
	if len(buttons) > 0 {
		b.rows = append(b.rows, buttons)
	}
	return b
}

// Button создаёт кнопку
func Button(text, callbackData string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{
		Text:         text,
		CallbackData: callbackData,
	}
}

// Len количество рядов
func (b *Builder) Len() int {
	return len(b.rows)
}

// Build создаёт финальную клавиатуру
func (b *Builder) Build() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: b.rows,
	}
}

// BookButtons кнопки записи на свободные слоты, по две в ряд
func BookButtons(slots []*model.TimeSlot) *models.InlineKeyboardMarkup {
	return slotButtons(slots, "✍️", BookSlot, func(s *model.TimeSlot) bool { return !s.IsBooked() })
}

// ReleaseButtons кнопки освобождения занятых слотов
func ReleaseButtons(slots []*model.TimeSlot) *models.InlineKeyboardMarkup {
	return slotButtons(slots, "↩️", ReleaseSlot, func(s *model.TimeSlot) bool { return s.IsBooked() })
}

func slotButtons(slots []*model.TimeSlot, icon, prefix string, match func(*model.TimeSlot) bool) *models.InlineKeyboardMarkup {
	b := NewBuilder()

	var row []models.InlineKeyboardButton
	count := 0
	for _, slot := range slots {
		if !match(slot) {
			continue
		}
		if count == maxSlotButtons {
			break
		}
		count++

		text := fmt.Sprintf("%s %s %s %s", icon,
			formatting.GetWeekdayShortName(slot.Day.Weekday()),
			slot.Day.Time().Format("02.01"),
			slot.StartTime.String())
		row = append(row, Button(text, fmt.Sprintf("%s%d", prefix, slot.ID)))

		if len(row) == 2 {
			b.Row(row...)
			row = nil
		}
	}
	b.Row(row...)

	if b.Len() == 0 {
		return nil
	}
	return b.Build()
}
