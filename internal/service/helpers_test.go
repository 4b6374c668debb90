package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_booking/internal/model"
	"github.com/Freeeeeet/tutor_booking/internal/repository/memory"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	store    *memory.Store
	users    *UserService
	schedule *ScheduleService
	booking  *BookingService
	convs    *ConversationService
	messages *MessageService
	notifier *recordingNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	logger := zap.NewNop()
	notifier := &recordingNotifier{}

	return &testEnv{
		store:    store,
		users:    NewUserService(store.Users(), logger),
		schedule: NewScheduleService(store.Users(), store.Slots(), logger, nil),
		booking:  NewBookingService(store.Slots(), logger, nil),
		convs:    NewConversationService(store.Users(), store.Conversations(), logger, nil),
		messages: NewMessageService(store.Users(), store.Conversations(), store.Messages(), notifier, logger, nil),
		notifier: notifier,
	}
}

func (e *testEnv) user(t *testing.T, telegramID int64, name string, tutor bool) *model.User {
	t.Helper()
	ctx := context.Background()

	user, err := e.users.RegisterUser(ctx, telegramID, "", name, "")
	require.NoError(t, err)

	if tutor {
		user, err = e.users.MakeTutor(ctx, user.ID)
		require.NoError(t, err)
	}

	return user
}

// recordingNotifier запоминает события и проверяет, что сообщение уже сохранено
type recordingNotifier struct {
	mu     sync.Mutex
	events []model.MessageEvent
	check  func(model.MessageEvent)
	err    error
}

func (n *recordingNotifier) Publish(_ context.Context, event model.MessageEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.check != nil {
		n.check(event)
	}
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) Events() []model.MessageEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]model.MessageEvent(nil), n.events...)
}

func fixedClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}
