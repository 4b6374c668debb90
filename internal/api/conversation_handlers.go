package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Freeeeeet/tutor_booking/internal/model"
	"go.uber.org/zap"
)

const sseHeartbeat = 25 * time.Second

type conversationResponse struct {
	*model.Conversation
	PeerID int64 `json:"peer_id"`
}

func (s *Server) OpenConversation(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	var req struct {
		UserID int64 `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == 0 {
		badRequest(w, "user_id is required")
		return
	}

	conv, err := s.conversations.OpenConversation(r.Context(), user.ID, req.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, conversationResponse{Conversation: conv, PeerID: conv.Peer(user.ID)})
}

func (s *Server) ListConversations(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	convs, err := s.conversations.ListConversations(r.Context(), user.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := make([]conversationResponse, 0, len(convs))
	for _, conv := range convs {
		resp = append(resp, conversationResponse{Conversation: conv, PeerID: conv.Peer(user.ID)})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) History(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	convID, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid conversation id")
		return
	}

	messages, err := s.messages.FetchHistory(r.Context(), convID, user.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if messages == nil {
		messages = []*model.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

func (s *Server) SendMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	convID, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid conversation id")
		return
	}

	var req struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	msg, err := s.messages.SendMessage(r.Context(), convID, user.ID, req.Body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

// Events поток Server-Sent Events с новыми сообщениями диалога.
// Подписка живёт ровно столько, сколько открыто соединение.
func (s *Server) Events(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	convID, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid conversation id")
		return
	}

	if _, err := s.conversations.GetConversation(r.Context(), convID, user.ID); err != nil {
		s.writeError(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, NewHTTPError(http.StatusInternalServerError, "streaming unsupported"))
		return
	}

	sub := s.registry.Subscribe(convID, user.ID)
	defer s.registry.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				s.logger.Warn("Failed to encode event", zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: message\ndata: %s\n\n", event.EventID, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
