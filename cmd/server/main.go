// Package main provides the API server entry point for the folio-share service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/genai"

	"github.com/folio-share/internal/api"
	"github.com/folio-share/internal/config"
	"github.com/folio-share/internal/logging"
	"github.com/folio-share/internal/market"
	"github.com/folio-share/internal/service"
	"github.com/folio-share/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.GetGlobalLogger().WithError(err).Fatal("Failed to load configuration")
	}

	// Initialize structured logging
	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	// Initialize database connections
	logger.Info("Connecting to databases...")

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	clickhouse, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to ClickHouse")
	}
	defer clickhouse.Close()

	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redis.Close()

	logger.Info("Database connections established")

	if err := storage.EnsureQuoteHistoryTable(clickhouse); err != nil {
		logger.WithError(err).Fatal("Failed to ensure quote history table")
	}

	// Initialize repositories
	userRepo := storage.NewUserRepository(postgres)
	portfolioRepo := storage.NewPortfolioRepository(postgres)
	shareRepo := storage.NewShareRepository(postgres)
	quoteHistoryRepo := storage.NewQuoteHistoryRepository(clickhouse)
	insightCache := storage.NewInsightCache(redis, cfg.Insights.TTL)

	// Initialize market data pipeline
	quoteCache := market.NewQuoteCache(market.QuoteCacheConfig{
		TTL:        cfg.Cache.TTL,
		MaxEntries: cfg.Cache.MaxEntries,
	})
	finnhub := market.NewFinnhubClient(&cfg.Finnhub)
	fetcher := market.NewFetcher(quoteCache, finnhub, quoteHistoryRepo)

	if cfg.Finnhub.APIKey == "" {
		logger.Warn("FINNHUB_API_KEY not set - quote fetching will fail until configured")
	}

	// Initialize services
	logger.Info("Initializing services...")

	portfolioService := service.NewPortfolioService(portfolioRepo, fetcher)
	shareService := service.NewShareService(shareRepo, portfolioRepo, portfolioService)
	userService := service.NewUserService(userRepo)

	// Gemini is optional; without credentials insight generation returns a
	// configuration error while the rest of the API keeps working.
	var generator service.ContentGenerator
	genaiClient, err := genai.NewClient(context.Background(), nil)
	if err != nil {
		logger.WithError(err).Warn("Gemini client unavailable - insight generation disabled")
	} else {
		generator = service.NewGeminiGenerator(genaiClient, cfg.Insights.Model)
	}
	insightService := service.NewInsightService(portfolioRepo, portfolioService, generator, insightCache)

	logger.Info("Services initialized")

	// Create server configuration
	serverConfig := &api.ServerConfig{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	}

	server := api.NewServer(serverConfig, portfolioService, shareService, insightService, userService, fetcher, quoteHistoryRepo)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
