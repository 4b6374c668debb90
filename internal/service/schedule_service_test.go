package service

import (
	"context"
	"testing"

	"github.com/Freeeeeet/tutor_booking/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSchedule_CreatesSlotsFromGrid(t *testing.T) {
	env := newTestEnv(t)
	tutor := env.user(t, 1, "Tutor", true)
	ctx := context.Background()

	grid := WeeklyGrid{Days: []DayEntry{
		{Weekday: "monday", Date: "2024-01-01", Slots: []RangeInput{
			{Start: "09:00", End: "10:00"},
			{Start: "10:00", End: "11:00"},
		}},
		{Weekday: "tuesday", Date: "2024-01-02", Slots: []RangeInput{
			{Start: "14:00", End: "15:30"},
		}},
		{Weekday: "wednesday", Date: "", Slots: []RangeInput{
			{Start: "09:00", End: "10:00"},
		}},
	}}

	result, err := env.schedule.GenerateSchedule(ctx, tutor.ID, grid)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Created)
	assert.Equal(t, 0, result.Skipped)
	assert.NotEmpty(t, result.BatchID)

	slots, err := env.booking.ListSlots(ctx, tutor.ID, model.RoleTutor)
	require.NoError(t, err)
	require.Len(t, slots, 3)

	assert.Equal(t, "2024-01-01", slots[0].Day.String())
	assert.Equal(t, "09:00", slots[0].StartTime.String())
	assert.Equal(t, "2024-01-02", slots[2].Day.String())
	assert.Equal(t, "15:30", slots[2].EndTime.String())
	for _, slot := range slots {
		assert.Equal(t, tutor.ID, slot.OwnerID)
		assert.Nil(t, slot.StudentID)
		assert.Equal(t, result.BatchID, slot.BatchID)
	}
}

func TestGenerateSchedule_SkipsInvalidPairs(t *testing.T) {
	env := newTestEnv(t)
	tutor := env.user(t, 1, "Tutor", true)
	ctx := context.Background()

	grid := WeeklyGrid{Days: []DayEntry{
		{Weekday: "monday", Date: "2024-01-01", Slots: []RangeInput{
			{Start: "09:00", End: "10:00"},
			{Start: "11:00", End: "10:00"}, // конец раньше начала
			{Start: "12:00", End: "12:00"}, // пустой интервал
			{Start: "25:00", End: "26:00"}, // невалидное время
			{Start: "abc", End: "10:00"},
			{Start: "09:00", End: "10:00"}, // дубликат
		}},
		{Weekday: "tuesday", Date: "2024-13-45", Slots: []RangeInput{
			{Start: "09:00", End: "10:00"},
			{Start: "10:00", End: "11:00"},
		}},
	}}

	result, err := env.schedule.GenerateSchedule(ctx, tutor.ID, grid)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 7, result.Skipped)
}

func TestGenerateSchedule_WeekdayMismatchUsesDate(t *testing.T) {
	env := newTestEnv(t)
	tutor := env.user(t, 1, "Tutor", true)

	result, err := env.schedule.GenerateSchedule(context.Background(), tutor.ID, WeeklyGrid{Days: []DayEntry{
		{Weekday: "friday", Date: "2024-01-01", Slots: []RangeInput{{Start: "09:00", End: "10:00"}}},
	}})
	require.NoError(t, err)

	require.Len(t, result.Slots, 1)
	assert.Equal(t, "2024-01-01", result.Slots[0].Day.String())
}

func TestGenerateSchedule_ReplacesOpenKeepsBooked(t *testing.T) {
	env := newTestEnv(t)
	tutor := env.user(t, 1, "Tutor", true)
	student := env.user(t, 2, "Student", false)
	ctx := context.Background()

	first, err := env.schedule.GenerateSchedule(ctx, tutor.ID, WeeklyGrid{Days: []DayEntry{
		{Date: "2024-01-01", Slots: []RangeInput{{Start: "09:00", End: "10:00"}, {Start: "10:00", End: "11:00"}}},
		{Date: "2024-01-03", Slots: []RangeInput{{Start: "09:00", End: "10:00"}}},
	}})
	require.NoError(t, err)
	require.Equal(t, 3, first.Created)

	booked := first.Slots[0]
	outcome, err := env.booking.ClaimSlot(ctx, booked.ID, student.ID)
	require.NoError(t, err)
	require.Equal(t, ClaimSuccess, outcome)

	// Новая сетка не упоминает 2024-01-03 и повторяет занятый интервал
	second, err := env.schedule.GenerateSchedule(ctx, tutor.ID, WeeklyGrid{Days: []DayEntry{
		{Date: "2024-01-01", Slots: []RangeInput{{Start: "09:00", End: "10:00"}, {Start: "13:00", End: "14:00"}}},
	}})
	require.NoError(t, err)

	assert.Equal(t, 1, second.Created)
	assert.Equal(t, 1, second.Skipped)
	assert.Equal(t, int64(2), second.RemovedOpen)

	slots, err := env.booking.ListSlots(ctx, tutor.ID, model.RoleTutor)
	require.NoError(t, err)
	require.Len(t, slots, 2)

	assert.Equal(t, booked.ID, slots[0].ID)
	require.NotNil(t, slots[0].StudentID)
	assert.Equal(t, student.ID, *slots[0].StudentID)
	assert.Equal(t, "13:00", slots[1].StartTime.String())
	assert.Nil(t, slots[1].StudentID)
}

func TestGenerateSchedule_EmptyGridClearsOpenSlots(t *testing.T) {
	env := newTestEnv(t)
	tutor := env.user(t, 1, "Tutor", true)
	ctx := context.Background()

	_, err := env.schedule.GenerateSchedule(ctx, tutor.ID, WeeklyGrid{Days: []DayEntry{
		{Date: "2024-01-01", Slots: []RangeInput{{Start: "09:00", End: "10:00"}}},
	}})
	require.NoError(t, err)

	result, err := env.schedule.GenerateSchedule(ctx, tutor.ID, WeeklyGrid{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, int64(1), result.RemovedOpen)

	slots, err := env.booking.ListOpenSlots(ctx, tutor.ID)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestGenerateSchedule_OtherOwnersUntouched(t *testing.T) {
	env := newTestEnv(t)
	tutorA := env.user(t, 1, "A", true)
	tutorB := env.user(t, 2, "B", true)
	ctx := context.Background()

	grid := WeeklyGrid{Days: []DayEntry{{Date: "2024-01-01", Slots: []RangeInput{{Start: "09:00", End: "10:00"}}}}}

	_, err := env.schedule.GenerateSchedule(ctx, tutorA.ID, grid)
	require.NoError(t, err)
	_, err = env.schedule.GenerateSchedule(ctx, tutorB.ID, grid)
	require.NoError(t, err)
	_, err = env.schedule.GenerateSchedule(ctx, tutorB.ID, WeeklyGrid{})
	require.NoError(t, err)

	slotsA, err := env.booking.ListOpenSlots(ctx, tutorA.ID)
	require.NoError(t, err)
	assert.Len(t, slotsA, 1)
}

func TestGenerateSchedule_RequiresTutor(t *testing.T) {
	env := newTestEnv(t)
	student := env.user(t, 1, "Student", false)
	ctx := context.Background()

	_, err := env.schedule.GenerateSchedule(ctx, student.ID, WeeklyGrid{})
	assert.ErrorIs(t, err, ErrNotTutor)

	_, err = env.schedule.GenerateSchedule(ctx, 999, WeeklyGrid{})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGenerateSchedule_DuplicatePairsInSubmission(t *testing.T) {
	env := newTestEnv(t)
	tutor := env.user(t, 1, "Tutor", true)

	result, err := env.schedule.GenerateSchedule(context.Background(), tutor.ID, WeeklyGrid{Days: []DayEntry{
		{Date: "2024-01-01", Slots: []RangeInput{{Start: "09:00", End: "10:00"}, {Start: "09:00", End: "10:00"}}},
		{Date: "2024-01-01", Slots: []RangeInput{{Start: "09:00", End: "10:00"}, {Start: "09:00", End: "09:30"}}},
	}})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 2, result.Skipped)
}
