package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/folio-share/internal/market"
	"github.com/folio-share/internal/types"
)

// QuoteResult is one entry of a batch quote response. Exactly one of the
// quote fields or Error is populated per symbol.
type QuoteResult struct {
	*market.Quote
	Symbol string `json:"symbol"`
	Error  string `json:"error,omitempty"`
}

// handleFetchQuotes handles POST /api/stocks - batch quote fetch
func (s *Server) handleFetchQuotes(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbols []string `json:"symbols"`
	}

	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, types.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	if len(req.Symbols) == 0 {
		respondError(w, http.StatusBadRequest, types.ErrCodeInvalidInput, "At least one symbol is required", nil)
		return
	}

	results, err := s.fetcher.FetchQuotes(r.Context(), req.Symbols)
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	quotes := make([]QuoteResult, 0, len(results))
	for symbol, result := range results {
		if result.Err != nil {
			quotes = append(quotes, QuoteResult{Symbol: symbol, Error: result.Err.Error()})
			continue
		}
		quotes = append(quotes, QuoteResult{Quote: result.Quote, Symbol: symbol})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"quotes": quotes})
}

// handleQuoteHistory handles GET /api/stocks/{symbol}/history - archived quotes
func (s *Server) handleQuoteHistory(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])
	if symbol == "" {
		respondError(w, http.StatusBadRequest, types.ErrCodeInvalidInput, "Symbol required", nil)
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, types.ErrCodeInvalidInput, "Invalid limit parameter", nil)
			return
		}
		limit = parsed
	}

	points, err := s.quoteHistory.RecentBySymbol(r.Context(), symbol, limit)
	if err != nil {
		statusCode, code, message := mapServiceError(err)
		respondError(w, statusCode, code, message, nil)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": symbol,
		"points": points,
	})
}
