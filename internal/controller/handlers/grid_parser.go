package handlers

import (
	"strings"
	"time"

	"github.com/Freeeeeet/tutor_booking/internal/model"
	"github.com/Freeeeeet/tutor_booking/internal/service"
)

const scheduleFormatHelp = "Каждая строка - один день:\n" +
	"<дата> [день недели] <начало>-<конец>, <начало>-<конец> ...\n\n" +
	"Пример:\n" +
	"2024-01-01 пн 09:00-10:00, 10:00-11:00\n" +
	"02.01.2024 вт 14:00-15:30\n\n" +
	"Дата в формате ГГГГ-ММ-ДД или ДД.ММ.ГГГГ. Строки без даты игнорируются.\n" +
	"⚠️ Все свободные слоты будут заменены новой сеткой, занятые сохранятся."

// parseGridText разбирает текстовую недельную сетку.
// Проверку интервалов выполняет ScheduleService: здесь токены только раскладываются по полям.
func parseGridText(text string) service.WeeklyGrid {
	var grid service.WeeklyGrid

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		tokens := strings.FieldsFunc(line, func(r rune) bool {
			return r == ' ' || r == ',' || r == ';' || r == '\t'
		})

		var entry service.DayEntry
		for _, tok := range tokens {
			tok = strings.TrimSuffix(tok, ":")

			if entry.Date == "" {
				if date, ok := normalizeDate(tok); ok {
					entry.Date = date
					continue
				}
			}

			if entry.Weekday == "" {
				if _, ok := model.ParseWeekday(tok); ok {
					entry.Weekday = tok
					continue
				}
			}

			start, end, _ := strings.Cut(strings.ReplaceAll(tok, "–", "-"), "-")
			entry.Slots = append(entry.Slots, service.RangeInput{Start: start, End: end})
		}

		grid.Days = append(grid.Days, entry)
	}

	return grid
}

// normalizeDate приводит ДД.ММ.ГГГГ к ГГГГ-ММ-ДД
func normalizeDate(tok string) (string, bool) {
	if _, err := time.Parse("2006-01-02", tok); err == nil {
		return tok, true
	}
	if t, err := time.Parse("02.01.2006", tok); err == nil {
		return t.Format("2006-01-02"), true
	}
	return "", false
}
