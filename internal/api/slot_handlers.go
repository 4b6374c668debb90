package api

import (
	"encoding/json"
	"net/http"

	"github.com/Freeeeeet/tutor_booking/internal/model"
	"github.com/Freeeeeet/tutor_booking/internal/service"
)

type outcomeResponse struct {
	Outcome string `json:"outcome"`
}

func (s *Server) GenerateSchedule(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	var grid service.WeeklyGrid
	if err := json.NewDecoder(r.Body).Decode(&grid); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	result, err := s.schedule.GenerateSchedule(r.Context(), user.ID, grid)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) ListMySlots(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	slots, err := s.booking.ListSlots(r.Context(), user.ID, user.Role())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, nonNilSlots(slots))
}

func (s *Server) ListTutorSlots(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.currentUser(w, r); !ok {
		return
	}

	tutorID, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid tutor id")
		return
	}

	var slots []*model.TimeSlot
	if r.URL.Query().Get("open") == "true" {
		slots, err = s.booking.ListOpenSlots(r.Context(), tutorID)
	} else {
		slots, err = s.booking.ListSlots(r.Context(), tutorID, model.RoleTutor)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, nonNilSlots(slots))
}

func (s *Server) ClaimSlot(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	slotID, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid slot id")
		return
	}

	outcome, err := s.booking.ClaimSlot(r.Context(), slotID, user.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	status := http.StatusOK
	switch outcome {
	case service.ClaimAlreadyBooked:
		status = http.StatusConflict
	case service.ClaimOwnerCannotClaim:
		status = http.StatusForbidden
	}

	writeJSON(w, status, outcomeResponse{Outcome: string(outcome)})
}

func (s *Server) ReleaseSlot(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	slotID, err := pathID(r)
	if err != nil {
		badRequest(w, "invalid slot id")
		return
	}

	outcome, err := s.booking.ReleaseSlot(r.Context(), slotID, user.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	status := http.StatusOK
	switch outcome {
	case service.ReleaseNotBooked:
		status = http.StatusConflict
	case service.ReleaseUnauthorized:
		status = http.StatusForbidden
	}

	writeJSON(w, status, outcomeResponse{Outcome: string(outcome)})
}

func nonNilSlots(slots []*model.TimeSlot) []*model.TimeSlot {
	if slots == nil {
		return []*model.TimeSlot{}
	}
	return slots
}
