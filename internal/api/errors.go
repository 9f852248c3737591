package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/folio-share/internal/types"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error types.ServiceError `json:"error"`
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error: types.ServiceError{
			Code:    code,
			Message: message,
			Details: details,
		},
	}

	json.NewEncoder(w).Encode(response)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// parseJSONBody parses JSON request body.
func parseJSONBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// mapServiceError maps service errors to HTTP status codes. Revoked and
// expired shares map to 410 Gone with distinct codes so clients can show
// the right message.
func mapServiceError(err error) (int, string, string) {
	var serviceErr *types.ServiceError
	if errors.As(err, &serviceErr) {
		switch serviceErr.Code {
		case types.ErrCodeInvalidInput:
			return http.StatusBadRequest, serviceErr.Code, serviceErr.Message
		case types.ErrCodePortfolioNotFound, types.ErrCodeUserNotFound, types.ErrCodeShareNotFound:
			return http.StatusNotFound, serviceErr.Code, serviceErr.Message
		case types.ErrCodeShareRevoked, types.ErrCodeShareExpired:
			return http.StatusGone, serviceErr.Code, serviceErr.Message
		case types.ErrCodeUnauthorized:
			return http.StatusUnauthorized, serviceErr.Code, serviceErr.Message
		case types.ErrCodeForbidden:
			return http.StatusForbidden, serviceErr.Code, serviceErr.Message
		case types.ErrCodeQuoteFetchFailed:
			return http.StatusBadGateway, serviceErr.Code, serviceErr.Message
		case types.ErrCodeConfiguration:
			return http.StatusInternalServerError, serviceErr.Code, serviceErr.Message
		default:
			return http.StatusInternalServerError, types.ErrCodeInternal, "An internal error occurred"
		}
	}

	return http.StatusInternalServerError, types.ErrCodeInternal, "An internal error occurred"
}
