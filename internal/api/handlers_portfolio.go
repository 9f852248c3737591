package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/folio-share/internal/service"
	"github.com/folio-share/internal/types"
)

// requireUserID extracts the caller identity from headers.
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		respondError(w, http.StatusUnauthorized, types.ErrCodeUnauthorized, "User ID required", nil)
		return "", false
	}
	return userID, true
}

// handleCreatePortfolio handles POST /api/portfolios - Create portfolio
func (s *Server) handleCreatePortfolio(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string                 `json:"name"`
		Description *string                `json:"description,omitempty"`
		Cash        float64                `json:"cash"`
		Visibility  types.Visibility       `json:"visibility,omitempty"`
		Holdings    []service.HoldingInput `json:"holdings"`
	}

	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, types.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	input := &service.CreatePortfolioInput{
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
		Cash:        req.Cash,
		Visibility:  req.Visibility,
		Holdings:    req.Holdings,
	}

	portfolio, err := s.portfolioService.CreatePortfolio(r.Context(), input)
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusCreated, portfolio)
}

// handleListPortfolios handles GET /api/portfolios - List caller's portfolios
func (s *Server) handleListPortfolios(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	portfolios, err := s.portfolioService.ListPortfolios(r.Context(), userID)
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"portfolios": portfolios})
}

// handleGetPortfolio handles GET /api/portfolios/{id} - Get portfolio details
func (s *Server) handleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	portfolioID := mux.Vars(r)["id"]

	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	portfolio, err := s.portfolioService.GetPortfolio(r.Context(), portfolioID, userID)
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, portfolio)
}

// handleUpdatePortfolio handles PUT /api/portfolios/{id} - Update portfolio
func (s *Server) handleUpdatePortfolio(w http.ResponseWriter, r *http.Request) {
	portfolioID := mux.Vars(r)["id"]

	var req struct {
		Name        *string                `json:"name,omitempty"`
		Description *string                `json:"description,omitempty"`
		Cash        *float64               `json:"cash,omitempty"`
		Visibility  *types.Visibility      `json:"visibility,omitempty"`
		Holdings    []service.HoldingInput `json:"holdings,omitempty"`
	}

	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, types.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	input := &service.UpdatePortfolioInput{
		PortfolioID: portfolioID,
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
		Cash:        req.Cash,
		Visibility:  req.Visibility,
		Holdings:    req.Holdings,
	}

	portfolio, err := s.portfolioService.UpdatePortfolio(r.Context(), input)
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, portfolio)
}

// handleDeletePortfolio handles DELETE /api/portfolios/{id} - Delete portfolio
func (s *Server) handleDeletePortfolio(w http.ResponseWriter, r *http.Request) {
	portfolioID := mux.Vars(r)["id"]

	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := s.portfolioService.DeletePortfolio(r.Context(), portfolioID, userID); err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"portfolioId": portfolioID,
	})
}

// handleGetSnapshot handles GET /api/portfolios/{id}/snapshot - Live valuation view
func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	portfolioID := mux.Vars(r)["id"]

	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	view, err := s.portfolioService.GetSnapshot(r.Context(), portfolioID, userID)
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// handleGenerateInsights handles POST /api/portfolios/{id}/insights - AI commentary
func (s *Server) handleGenerateInsights(w http.ResponseWriter, r *http.Request) {
	portfolioID := mux.Vars(r)["id"]

	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	insights, err := s.insightService.GenerateInsights(r.Context(), portfolioID, userID)
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, insights)
}
