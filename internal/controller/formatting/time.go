package formatting

import (
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_booking/internal/model"
)

// FormatDay форматирует день с коротким названием дня недели
func FormatDay(d model.Day) string {
	return fmt.Sprintf("%s %s", GetWeekdayShortName(d.Weekday()), d.Time().Format("02.01.2006"))
}

// FormatTimeRange форматирует диапазон времени
func FormatTimeRange(start, end model.TimeOfDay) string {
	return fmt.Sprintf("%s-%s", start, end)
}

// FormatDateTime форматирует дату и время
func FormatDateTime(t time.Time) string {
	return t.Format("02.01.2006 15:04")
}

// FormatSlot одна строка списка слотов
func FormatSlot(slot *model.TimeSlot) string {
	status := "🟢 свободен"
	if slot.IsBooked() {
		status = "🔴 занят"
	}
	return fmt.Sprintf("#%d  %s  %s  %s", slot.ID, FormatDay(slot.Day), FormatTimeRange(slot.StartTime, slot.EndTime), status)
}

// GetWeekdayShortName возвращает краткое название дня недели на русском
func GetWeekdayShortName(weekday time.Weekday) string {
	names := []string{"Вс", "Пн", "Вт", "Ср", "Чт", "Пт", "Сб"}
	if int(weekday) >= 0 && int(weekday) < len(names) {
		return names[weekday]
	}
	return "?"
}

// GetMonthName возвращает название месяца на русском
func GetMonthName(month time.Month) string {
	names := map[time.Month]string{
		time.January:   "Январь",
		time.February:  "Февраль",
		time.March:     "Март",
		time.April:     "Апрель",
		time.May:       "Май",
		time.June:      "Июнь",
		time.July:      "Июль",
		time.August:    "Август",
		time.September: "Сентябрь",
		time.October:   "Октябрь",
		time.November:  "Ноябрь",
		time.December:  "Декабрь",
	}
	return names[month]
}
