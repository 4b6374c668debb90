package api

import (
	"net/http"
)

type userResponse struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, userResponse{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Role:        string(user.Role()),
	})
}

func (s *Server) BecomeTutor(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	user, err := s.users.MakeTutor(r.Context(), user.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Role:        string(user.Role()),
	})
}
