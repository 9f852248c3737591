// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/folio-share/internal/logging"
	"github.com/folio-share/internal/market"
	"github.com/folio-share/internal/models"
	"github.com/folio-share/internal/service"
	"github.com/folio-share/internal/storage"
)

// Service interfaces for dependency injection and testing

// PortfolioServiceInterface defines the interface for portfolio service operations
type PortfolioServiceInterface interface {
	CreatePortfolio(ctx context.Context, input *service.CreatePortfolioInput) (*models.Portfolio, error)
	GetPortfolio(ctx context.Context, portfolioID, userID string) (*models.Portfolio, error)
	ListPortfolios(ctx context.Context, userID string) ([]*models.Portfolio, error)
	UpdatePortfolio(ctx context.Context, input *service.UpdatePortfolioInput) (*models.Portfolio, error)
	DeletePortfolio(ctx context.Context, portfolioID, userID string) error
	GetSnapshot(ctx context.Context, portfolioID, userID string) (*service.PortfolioView, error)
}

// ShareServiceInterface defines the interface for share service operations
type ShareServiceInterface interface {
	GenerateShare(ctx context.Context, input *service.GenerateShareInput) (*models.ShareAccess, error)
	RevokeShare(ctx context.Context, token, userID string) error
	ListShares(ctx context.Context, portfolioID, userID string) ([]*models.ShareAccess, error)
	ResolveShare(ctx context.Context, token string, access service.AccessContext) (*service.SharedPortfolioView, error)
}

// InsightServiceInterface defines the interface for insight generation
type InsightServiceInterface interface {
	GenerateInsights(ctx context.Context, portfolioID, userID string) (*service.PortfolioInsights, error)
}

// UserServiceInterface defines the interface for user service operations
type UserServiceInterface interface {
	CreateUser(ctx context.Context, input *service.CreateUserInput) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// QuoteFetcherInterface defines the interface for batch quote retrieval
type QuoteFetcherInterface interface {
	FetchQuotes(ctx context.Context, symbols []string) (map[string]market.Result, error)
}

// QuoteHistoryInterface defines the interface for archived quote lookups
type QuoteHistoryInterface interface {
	RecentBySymbol(ctx context.Context, symbol string, limit int) ([]storage.QuotePoint, error)
}

// Server represents the HTTP API server.
type Server struct {
	router           *mux.Router
	httpServer       *http.Server
	portfolioService PortfolioServiceInterface
	shareService     ShareServiceInterface
	insightService   InsightServiceInterface
	userService      UserServiceInterface
	fetcher          QuoteFetcherInterface
	quoteHistory     QuoteHistoryInterface
	config           *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host              string
	Port              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	RequestsPerSecond int
	Burst             int
}

// NewServer creates a new API server instance.
func NewServer(
	config *ServerConfig,
	portfolioService PortfolioServiceInterface,
	shareService ShareServiceInterface,
	insightService InsightServiceInterface,
	userService UserServiceInterface,
	fetcher QuoteFetcherInterface,
	quoteHistory QuoteHistoryInterface,
) *Server {
	s := &Server{
		router:           mux.NewRouter(),
		portfolioService: portfolioService,
		shareService:     shareService,
		insightService:   insightService,
		userService:      userService,
		fetcher:          fetcher,
		quoteHistory:     quoteHistory,
		config:           config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	rateLimiter := NewRateLimiter(s.config.RequestsPerSecond, s.config.Burst)

	// Middleware order matters
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)
	s.router.Use(RateLimitMiddleware(rateLimiter))
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Stock endpoints
	api.HandleFunc("/stocks", s.handleFetchQuotes).Methods("POST")
	api.HandleFunc("/stocks/{symbol}/history", s.handleQuoteHistory).Methods("GET")

	// Portfolio endpoints
	api.HandleFunc("/portfolios", s.handleCreatePortfolio).Methods("POST")
	api.HandleFunc("/portfolios", s.handleListPortfolios).Methods("GET")
	api.HandleFunc("/portfolios/{id}", s.handleGetPortfolio).Methods("GET")
	api.HandleFunc("/portfolios/{id}", s.handleUpdatePortfolio).Methods("PUT")
	api.HandleFunc("/portfolios/{id}", s.handleDeletePortfolio).Methods("DELETE")
	api.HandleFunc("/portfolios/{id}/snapshot", s.handleGetSnapshot).Methods("GET")
	api.HandleFunc("/portfolios/{id}/insights", s.handleGenerateInsights).Methods("POST")

	// Share endpoints
	api.HandleFunc("/portfolios/{id}/shares", s.handleGenerateShare).Methods("POST")
	api.HandleFunc("/portfolios/{id}/shares", s.handleListShares).Methods("GET")
	api.HandleFunc("/shares/{token}", s.handleRevokeShare).Methods("DELETE")

	// Public share resolution, no caller identity required
	api.HandleFunc("/shared/{token}", s.handleResolveShare).Methods("GET")

	// User endpoints
	api.HandleFunc("/users", s.handleCreateUser).Methods("POST")
	api.HandleFunc("/users/{id}", s.handleGetUser).Methods("GET")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "folio-share",
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.GetGlobalLogger().WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.GetGlobalLogger().Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the configured router, used by tests.
func (s *Server) Router() http.Handler {
	return s.router
}
