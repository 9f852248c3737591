package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/folio-share/internal/service"
	"github.com/folio-share/internal/types"
)

// handleCreateUser handles POST /api/users - Register account
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req service.CreateUserInput

	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, types.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	user, err := s.userService.CreateUser(r.Context(), &req)
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

// handleGetUser handles GET /api/users/{id} - Get account details
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]

	user, err := s.userService.GetUser(r.Context(), userID)
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, user)
}
