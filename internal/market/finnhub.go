package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/folio-share/internal/config"
)

// FinnhubClient fetches quotes and company profiles from the Finnhub API.
// It implements the Provider interface.
type FinnhubClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewFinnhubClient creates a Finnhub client from configuration.
func NewFinnhubClient(cfg *config.FinnhubConfig) *FinnhubClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &FinnhubClient{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Configured reports whether an API key is present. Batch fetches fail
// fast before any request when it is not.
func (c *FinnhubClient) Configured() bool {
	return c.apiKey != ""
}

// finnhubQuote mirrors the /quote response shape.
type finnhubQuote struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	ChangePercent float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PreviousClose float64 `json:"pc"`
}

// finnhubProfile mirrors the /stock/profile2 response shape.
type finnhubProfile struct {
	Name            string `json:"name"`
	FinnhubIndustry string `json:"finnhubIndustry"`
	Currency        string `json:"currency"`
}

// Quote fetches the current price snapshot for a symbol.
func (c *FinnhubClient) Quote(ctx context.Context, symbol string) (*ProviderQuote, error) {
	var payload finnhubQuote
	if err := c.getJSON(ctx, "/quote", symbol, &payload); err != nil {
		return nil, err
	}

	return &ProviderQuote{
		Price:         payload.Current,
		Change:        payload.Change,
		ChangePercent: payload.ChangePercent,
		High:          payload.High,
		Low:           payload.Low,
		Open:          payload.Open,
		PreviousClose: payload.PreviousClose,
	}, nil
}

// Profile fetches descriptive company data for a symbol.
func (c *FinnhubClient) Profile(ctx context.Context, symbol string) (*ProviderProfile, error) {
	var payload finnhubProfile
	if err := c.getJSON(ctx, "/stock/profile2", symbol, &payload); err != nil {
		return nil, err
	}

	return &ProviderProfile{
		Name:     payload.Name,
		Industry: payload.FinnhubIndustry,
		Currency: payload.Currency,
	}, nil
}

// getJSON issues a GET against the given endpoint and decodes the JSON body.
func (c *FinnhubClient) getJSON(ctx context.Context, path, symbol string, dest interface{}) error {
	reqURL := fmt.Sprintf("%s%s?symbol=%s&token=%s",
		c.baseURL, path, url.QueryEscape(symbol), url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", symbol, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed for %s: %w", symbol, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("provider returned status %d for %s: %s", resp.StatusCode, symbol, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode response for %s: %w", symbol, err)
	}

	return nil
}
