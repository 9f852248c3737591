package api

import (
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/folio-share/internal/service"
	"github.com/folio-share/internal/types"
)

// handleGenerateShare handles POST /api/portfolios/{id}/shares - Create share link
func (s *Server) handleGenerateShare(w http.ResponseWriter, r *http.Request) {
	portfolioID := mux.Vars(r)["id"]

	var req struct {
		ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	}
	if r.ContentLength > 0 {
		if err := parseJSONBody(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, types.ErrCodeInvalidInput, "Invalid request body", nil)
			return
		}
	}

	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	share, err := s.shareService.GenerateShare(r.Context(), &service.GenerateShareInput{
		PortfolioID: portfolioID,
		UserID:      userID,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusCreated, share)
}

// handleListShares handles GET /api/portfolios/{id}/shares - Active share links
func (s *Server) handleListShares(w http.ResponseWriter, r *http.Request) {
	portfolioID := mux.Vars(r)["id"]

	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	shares, err := s.shareService.ListShares(r.Context(), portfolioID, userID)
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"shares": shares})
}

// handleRevokeShare handles DELETE /api/shares/{token} - Revoke share link
func (s *Server) handleRevokeShare(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]

	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := s.shareService.RevokeShare(r.Context(), token, userID); err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"token":   token,
	})
}

// handleResolveShare handles GET /api/shared/{token} - Public shared view.
// No caller identity is required; the token is the credential.
func (s *Server) handleResolveShare(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]

	view, err := s.shareService.ResolveShare(r.Context(), token, service.AccessContext{
		RemoteAddr: clientAddr(r),
		UserAgent:  r.UserAgent(),
	})
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// clientAddr strips the port from the request's remote address.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
