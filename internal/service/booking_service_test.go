package service

import (
	"context"
	"sync"
	"testing"

	"github.com/Freeeeeet/tutor_booking/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSlot(t *testing.T, env *testEnv, tutor *model.User) *model.TimeSlot {
	t.Helper()

	result, err := env.schedule.GenerateSchedule(context.Background(), tutor.ID, WeeklyGrid{Days: []DayEntry{
		{Date: "2024-01-01", Slots: []RangeInput{{Start: "09:00", End: "10:00"}}},
	}})
	require.NoError(t, err)
	require.Len(t, result.Slots, 1)

	return result.Slots[0]
}

func TestClaimSlot(t *testing.T) {
	env := newTestEnv(t)
	tutor := env.user(t, 1, "Tutor", true)
	alice := env.user(t, 2, "Alice", false)
	bob := env.user(t, 3, "Bob", false)
	slot := openSlot(t, env, tutor)
	ctx := context.Background()

	outcome, err := env.booking.ClaimSlot(ctx, slot.ID, tutor.ID)
	require.NoError(t, err)
	assert.Equal(t, ClaimOwnerCannotClaim, outcome)

	outcome, err = env.booking.ClaimSlot(ctx, slot.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, ClaimSuccess, outcome)

	outcome, err = env.booking.ClaimSlot(ctx, slot.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, ClaimAlreadyBooked, outcome)

	// Повторный claim тем же студентом тоже отказ
	outcome, err = env.booking.ClaimSlot(ctx, slot.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, ClaimAlreadyBooked, outcome)

	// Владелец на занятом слоте получает owner_cannot_claim
	outcome, err = env.booking.ClaimSlot(ctx, slot.ID, tutor.ID)
	require.NoError(t, err)
	assert.Equal(t, ClaimOwnerCannotClaim, outcome)

	current, err := env.booking.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	require.NotNil(t, current.StudentID)
	assert.Equal(t, alice.ID, *current.StudentID)
	assert.Equal(t, model.SlotStateBooked, current.State())
}

func TestClaimSlot_UnknownSlot(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, 1, "Alice", false)

	_, err := env.booking.ClaimSlot(context.Background(), 404, alice.ID)
	assert.ErrorIs(t, err, ErrSlotNotFound)

	_, err = env.booking.ReleaseSlot(context.Background(), 404, alice.ID)
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestClaimSlot_ConcurrentSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	tutor := env.user(t, 1, "Tutor", true)
	slot := openSlot(t, env, tutor)
	ctx := context.Background()

	const n = 50
	students := make([]*model.User, n)
	for i := range students {
		students[i] = env.user(t, int64(100+i), "Student", false)
	}

	outcomes := make([]ClaimOutcome, n)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			outcome, err := env.booking.ClaimSlot(ctx, slot.ID, students[i].ID)
			assert.NoError(t, err)
			outcomes[i] = outcome
		}(i)
	}
	close(start)
	wg.Wait()

	winners := 0
	var winner int64
	for i, outcome := range outcomes {
		switch outcome {
		case ClaimSuccess:
			winners++
			winner = students[i].ID
		default:
			assert.Equal(t, ClaimAlreadyBooked, outcome)
		}
	}
	require.Equal(t, 1, winners)

	current, err := env.booking.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	require.NotNil(t, current.StudentID)
	assert.Equal(t, winner, *current.StudentID)
}

func TestReleaseSlot(t *testing.T) {
	env := newTestEnv(t)
	tutor := env.user(t, 1, "Tutor", true)
	alice := env.user(t, 2, "Alice", false)
	mallory := env.user(t, 3, "Mallory", false)
	slot := openSlot(t, env, tutor)
	ctx := context.Background()

	outcome, err := env.booking.ReleaseSlot(ctx, slot.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, ReleaseNotBooked, outcome)

	_, err = env.booking.ClaimSlot(ctx, slot.ID, alice.ID)
	require.NoError(t, err)

	outcome, err = env.booking.ReleaseSlot(ctx, slot.ID, mallory.ID)
	require.NoError(t, err)
	assert.Equal(t, ReleaseUnauthorized, outcome)

	current, err := env.booking.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.True(t, current.IsBooked())

	outcome, err = env.booking.ReleaseSlot(ctx, slot.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, ReleaseSuccess, outcome)

	outcome, err = env.booking.ReleaseSlot(ctx, slot.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, ReleaseNotBooked, outcome)

	// Владелец тоже может освободить
	_, err = env.booking.ClaimSlot(ctx, slot.ID, mallory.ID)
	require.NoError(t, err)

	outcome, err = env.booking.ReleaseSlot(ctx, slot.ID, tutor.ID)
	require.NoError(t, err)
	assert.Equal(t, ReleaseSuccess, outcome)

	current, err = env.booking.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotStateOpen, current.State())
}

func TestReleaseThenClaimAgain(t *testing.T) {
	env := newTestEnv(t)
	tutor := env.user(t, 1, "Tutor", true)
	alice := env.user(t, 2, "Alice", false)
	bob := env.user(t, 3, "Bob", false)
	slot := openSlot(t, env, tutor)
	ctx := context.Background()

	_, err := env.booking.ClaimSlot(ctx, slot.ID, alice.ID)
	require.NoError(t, err)
	_, err = env.booking.ReleaseSlot(ctx, slot.ID, alice.ID)
	require.NoError(t, err)

	outcome, err := env.booking.ClaimSlot(ctx, slot.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, ClaimSuccess, outcome)
}

func TestListSlots_ByRole(t *testing.T) {
	env := newTestEnv(t)
	tutor := env.user(t, 1, "Tutor", true)
	alice := env.user(t, 2, "Alice", false)
	ctx := context.Background()

	result, err := env.schedule.GenerateSchedule(ctx, tutor.ID, WeeklyGrid{Days: []DayEntry{
		{Date: "2024-01-02", Slots: []RangeInput{{Start: "09:00", End: "10:00"}}},
		{Date: "2024-01-01", Slots: []RangeInput{{Start: "12:00", End: "13:00"}, {Start: "08:00", End: "09:00"}}},
	}})
	require.NoError(t, err)

	tutorSlots, err := env.booking.ListSlots(ctx, tutor.ID, model.RoleTutor)
	require.NoError(t, err)
	require.Len(t, tutorSlots, 3)
	assert.Equal(t, "08:00", tutorSlots[0].StartTime.String())
	assert.Equal(t, "12:00", tutorSlots[1].StartTime.String())
	assert.Equal(t, "2024-01-02", tutorSlots[2].Day.String())

	_, err = env.booking.ClaimSlot(ctx, result.Slots[0].ID, alice.ID)
	require.NoError(t, err)

	studentSlots, err := env.booking.ListSlots(ctx, alice.ID, model.RoleStudent)
	require.NoError(t, err)
	require.Len(t, studentSlots, 1)
	assert.Equal(t, result.Slots[0].ID, studentSlots[0].ID)

	open, err := env.booking.ListOpenSlots(ctx, tutor.ID)
	require.NoError(t, err)
	assert.Len(t, open, 2)

	openCount, bookedCount, err := env.booking.SlotCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), openCount)
	assert.Equal(t, int64(1), bookedCount)
}
