package handlers

import (
	"testing"

	"github.com/Freeeeeet/tutor_booking/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGridText(t *testing.T) {
	text := `2024-01-01 пн 09:00-10:00, 10:00-11:00
02.01.2024 tuesday: 14:00–15:30

пт 09:00-10:00
2024-01-05 25:00-26:00 oops`

	grid := parseGridText(text)
	require.Len(t, grid.Days, 4)

	assert.Equal(t, service.DayEntry{
		Weekday: "пн",
		Date:    "2024-01-01",
		Slots: []service.RangeInput{
			{Start: "09:00", End: "10:00"},
			{Start: "10:00", End: "11:00"},
		},
	}, grid.Days[0])

	assert.Equal(t, "2024-01-02", grid.Days[1].Date)
	assert.Equal(t, "tuesday", grid.Days[1].Weekday)
	assert.Equal(t, []service.RangeInput{{Start: "14:00", End: "15:30"}}, grid.Days[1].Slots)

	// Без даты - день будет проигнорирован сервисом
	assert.Empty(t, grid.Days[2].Date)

	// Невалидные токены доходят до сервиса и считаются пропущенными
	assert.Equal(t, []service.RangeInput{
		{Start: "25:00", End: "26:00"},
		{Start: "oops", End: ""},
	}, grid.Days[3].Slots)
}

func TestCommandHelpers(t *testing.T) {
	id, ok := parseIDArg("/book 12")
	assert.True(t, ok)
	assert.Equal(t, int64(12), id)

	id, ok = parseIDArg("/book #7")
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)

	_, ok = parseIDArg("/book")
	assert.False(t, ok)

	_, ok = parseIDArg("/book -3")
	assert.False(t, ok)

	assert.Equal(t, "2024-01-01 09:00-10:00", commandBody("/schedule\n2024-01-01 09:00-10:00\n"))
	assert.Empty(t, commandBody("/schedule"))
}
