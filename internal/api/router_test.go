package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_booking/internal/auth"
	"github.com/Freeeeeet/tutor_booking/internal/fanout"
	"github.com/Freeeeeet/tutor_booking/internal/metrics"
	"github.com/Freeeeeet/tutor_booking/internal/model"
	"github.com/Freeeeeet/tutor_booking/internal/repository/memory"
	"github.com/Freeeeeet/tutor_booking/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	*httptest.Server
	tokens *auth.Tokens
	users  *service.UserService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := zap.NewNop()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	store := memory.NewStore()
	registry := fanout.NewRegistry(8, logger, m)
	tokens := auth.NewTokens("test-secret", time.Hour)

	users := service.NewUserService(store.Users(), logger)

	handler := NewRouter(Deps{
		UserService:         users,
		ScheduleService:     service.NewScheduleService(store.Users(), store.Slots(), logger, m),
		BookingService:      service.NewBookingService(store.Slots(), logger, m),
		ConversationService: service.NewConversationService(store.Users(), store.Conversations(), logger, m),
		MessageService:      service.NewMessageService(store.Users(), store.Conversations(), store.Messages(), registry, logger, m),
		Registry:            registry,
		Tokens:              tokens,
		Gatherer:            reg,
		Logger:              logger,
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, tokens: tokens, users: users}
}

func (s *testServer) register(t *testing.T, telegramID int64, name string, tutor bool) (*model.User, string) {
	t.Helper()
	ctx := context.Background()

	user, err := s.users.RegisterUser(ctx, telegramID, "", name, "")
	require.NoError(t, err)
	if tutor {
		user, err = s.users.MakeTutor(ctx, user.ID)
		require.NoError(t, err)
	}

	token, err := s.tokens.Issue(user.ID)
	require.NoError(t, err)
	return user, token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestAPI_RequiresToken(t *testing.T) {
	srv := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, srv.do(t, http.MethodGet, "/api/slots", "", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, srv.do(t, http.MethodGet, "/api/slots", "garbage", nil, nil))

	// Токен пользователя, которого нет в базе
	token, err := srv.tokens.Issue(777)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, srv.do(t, http.MethodGet, "/api/me", token, nil, nil))

	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/healthz", "", nil, nil))
}

func TestAPI_ScheduleAndBooking(t *testing.T) {
	srv := newTestServer(t)
	tutor, tutorToken := srv.register(t, 1, "Tutor", true)
	_, aliceToken := srv.register(t, 2, "Alice", false)
	_, bobToken := srv.register(t, 3, "Bob", false)

	grid := service.WeeklyGrid{Days: []service.DayEntry{
		{Weekday: "monday", Date: "2024-01-01", Slots: []service.RangeInput{
			{Start: "09:00", End: "10:00"},
			{Start: "10:00", End: "09:00"},
		}},
	}}

	assert.Equal(t, http.StatusForbidden, srv.do(t, http.MethodPut, "/api/schedule", aliceToken, grid, nil))

	var result service.GenerateResult
	require.Equal(t, http.StatusOK, srv.do(t, http.MethodPut, "/api/schedule", tutorToken, grid, &result))
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Skipped)

	var open []*model.TimeSlot
	path := fmt.Sprintf("/api/tutors/%d/slots?open=true", tutor.ID)
	require.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, path, aliceToken, nil, &open))
	require.Len(t, open, 1)
	slotPath := fmt.Sprintf("/api/slots/%d", open[0].ID)

	var outcome outcomeResponse
	assert.Equal(t, http.StatusForbidden, srv.do(t, http.MethodPost, slotPath+"/claim", tutorToken, nil, &outcome))
	assert.Equal(t, string(service.ClaimOwnerCannotClaim), outcome.Outcome)

	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodPost, slotPath+"/claim", aliceToken, nil, &outcome))
	assert.Equal(t, string(service.ClaimSuccess), outcome.Outcome)

	assert.Equal(t, http.StatusConflict, srv.do(t, http.MethodPost, slotPath+"/claim", bobToken, nil, &outcome))
	assert.Equal(t, string(service.ClaimAlreadyBooked), outcome.Outcome)

	assert.Equal(t, http.StatusForbidden, srv.do(t, http.MethodPost, slotPath+"/release", bobToken, nil, &outcome))
	assert.Equal(t, string(service.ReleaseUnauthorized), outcome.Outcome)

	var mine []*model.TimeSlot
	require.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/api/slots", aliceToken, nil, &mine))
	assert.Len(t, mine, 1)

	assert.Equal(t, http.StatusOK, srv.do(t, http.MethodPost, slotPath+"/release", aliceToken, nil, &outcome))
	assert.Equal(t, http.StatusConflict, srv.do(t, http.MethodPost, slotPath+"/release", aliceToken, nil, &outcome))
	assert.Equal(t, string(service.ReleaseNotBooked), outcome.Outcome)

	assert.Equal(t, http.StatusNotFound, srv.do(t, http.MethodPost, "/api/slots/9999/claim", aliceToken, nil, nil))
}

func TestAPI_Conversations(t *testing.T) {
	srv := newTestServer(t)
	alice, aliceToken := srv.register(t, 1, "Alice", false)
	bob, bobToken := srv.register(t, 2, "Bob", false)
	_, eveToken := srv.register(t, 3, "Eve", false)

	assert.Equal(t, http.StatusUnprocessableEntity,
		srv.do(t, http.MethodPost, "/api/conversations", aliceToken, map[string]int64{"user_id": alice.ID}, nil))

	var fromAlice, fromBob conversationResponse
	require.Equal(t, http.StatusOK,
		srv.do(t, http.MethodPost, "/api/conversations", aliceToken, map[string]int64{"user_id": bob.ID}, &fromAlice))
	require.Equal(t, http.StatusOK,
		srv.do(t, http.MethodPost, "/api/conversations", bobToken, map[string]int64{"user_id": alice.ID}, &fromBob))
	assert.Equal(t, fromAlice.ID, fromBob.ID)
	assert.Equal(t, bob.ID, fromAlice.PeerID)

	messagesPath := fmt.Sprintf("/api/conversations/%d/messages", fromAlice.ID)

	assert.Equal(t, http.StatusBadRequest, srv.do(t, http.MethodPost, messagesPath, aliceToken, map[string]string{"body": " "}, nil))
	assert.Equal(t, http.StatusForbidden, srv.do(t, http.MethodPost, messagesPath, eveToken, map[string]string{"body": "hi"}, nil))

	var msg model.Message
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, messagesPath, aliceToken, map[string]string{"body": "hi"}, &msg))
	assert.Equal(t, alice.ID, msg.SenderID)

	var history []*model.Message
	require.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, messagesPath, bobToken, nil, &history))
	require.Len(t, history, 1)
	assert.Equal(t, "hi", history[0].Body)

	var inbox []conversationResponse
	require.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/api/conversations", bobToken, nil, &inbox))
	require.Len(t, inbox, 1)
	assert.Equal(t, alice.ID, inbox[0].PeerID)
}

func TestAPI_EventsStream(t *testing.T) {
	srv := newTestServer(t)
	alice, aliceToken := srv.register(t, 1, "Alice", false)
	_, bobToken := srv.register(t, 2, "Bob", false)

	var conv conversationResponse
	require.Equal(t, http.StatusOK,
		srv.do(t, http.MethodPost, "/api/conversations", bobToken, map[string]int64{"user_id": alice.ID}, &conv))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/conversations/%d/events", srv.URL, conv.ID), nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+aliceToken)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	path := fmt.Sprintf("/api/conversations/%d/messages", conv.ID)
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, path, bobToken, map[string]string{"body": "ping"}, nil))

	scanner := bufio.NewScanner(resp.Body)
	var event model.MessageEvent
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event))
			break
		}
	}

	assert.Equal(t, conv.ID, event.ConversationID)
	assert.Equal(t, "Bob", event.SenderDisplayName)
	assert.Equal(t, "ping", event.Body)
}

func TestAPI_EventsForbiddenForOutsider(t *testing.T) {
	srv := newTestServer(t)
	alice, _ := srv.register(t, 1, "Alice", false)
	_, bobToken := srv.register(t, 2, "Bob", false)
	_, eveToken := srv.register(t, 3, "Eve", false)

	var conv conversationResponse
	require.Equal(t, http.StatusOK,
		srv.do(t, http.MethodPost, "/api/conversations", bobToken, map[string]int64{"user_id": alice.ID}, &conv))

	path := fmt.Sprintf("/api/conversations/%d/events", conv.ID)
	assert.Equal(t, http.StatusForbidden, srv.do(t, http.MethodGet, path, eveToken, nil, nil))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(fmt.Errorf("x: %w", service.ErrPersistFailed)))
	assert.Equal(t, http.StatusNotFound, statusFor(service.ErrConversationNotFound))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}

func TestToHTTPError(t *testing.T) {
	hidden := toHTTPError(fmt.Errorf("insert: %w: %w", service.ErrPersistFailed, assert.AnError))
	assert.Equal(t, http.StatusServiceUnavailable, hidden.Code)
	assert.Equal(t, http.StatusText(http.StatusServiceUnavailable), hidden.Message)

	visible := toHTTPError(service.ErrSelfConversation)
	assert.Equal(t, http.StatusUnprocessableEntity, visible.Code)
	assert.Equal(t, service.ErrSelfConversation.Error(), visible.Message)

	explicit := NewHTTPError(http.StatusTeapot, "short and stout")
	assert.Same(t, explicit, toHTTPError(fmt.Errorf("wrapped: %w", explicit)))
}
