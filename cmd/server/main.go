package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/ksred/invest-api/internal/accounts"
	"github.com/ksred/invest-api/internal/auth"
	"github.com/ksred/invest-api/internal/brokerage"
	"github.com/ksred/invest-api/internal/config"
	"github.com/ksred/invest-api/internal/database"
	"github.com/ksred/invest-api/internal/investments"
	"github.com/ksred/invest-api/internal/ledger"
	"github.com/ksred/invest-api/internal/reconciliation"
	"github.com/ksred/invest-api/pkg/external"
	"github.com/ksred/invest-api/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	// Configure pretty logging for development
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global log level
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main initializes and runs the investment API server with graceful
// shutdown support
func main() {
	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize database
	db, err := database.NewDatabase(cfg.DBPath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	// Initialize router
	router := gin.Default()

	// Pick the brokerage gateway implementation
	var gateway brokerage.Gateway
	if cfg.BrokerageMode == "mock" {
		zlog.Warn().Msg("running against the in-memory brokerage mock")
		gateway = brokerage.NewMock()
	} else {
		retry := external.DefaultRetry(cfg.RetryCount, cfg.RetryMinTimeout, cfg.RetryMaxTimeout, cfg.RetryFactor)
		gateway = brokerage.NewClient(cfg.BrokerageBaseURL, cfg.BrokerageAPIKey, cfg.BrokerageTimeout, retry)
	}

	// Initialize services and handlers
	authService := auth.NewService(cfg.JWTSecret)
	authHandlers := auth.NewGinHandlers(authService)
	// Register test credentials
	authService.RegisterAPICredentials(auth.TestAPIKey, auth.TestAPISecret)

	accountsService := accounts.NewService(db, gateway, cfg.FirmID)
	accountsHandlers := accounts.NewGinHandlers(accountsService)

	ledgerService := ledger.NewService(db)

	investmentsService := investments.NewService(db, accountsService, gateway, ledgerService, investments.Economics{
		FeeBps:       cfg.FeeBps,
		SharePrice:   cfg.SharePrice,
		InstrumentID: cfg.InstrumentID,
		Currency:     cfg.Currency,
	})
	investmentsHandlers := investments.NewGinHandlers(investmentsService)

	// Create and start the reconciliation processor
	reconciler := reconciliation.NewProcessor(accountsService, ledgerService, gateway, cfg.ReconcileInterval)
	processorCtx, processorCancel := context.WithCancel(context.Background())
	defer processorCancel()

	go reconciler.Start(processorCtx)

	// Setup middleware
	router.Use(middleware.RateLimit())

	// Setup API routes
	setupRoutes(router, cfg.JWTSecret, authHandlers, accountsHandlers, investmentsHandlers)

	// Create server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Give outstanding operations 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints and their handlers
// It groups routes by functionality and applies appropriate middleware:
// - Auth routes: Public endpoints for authentication
// - Account and order routes: Protected by JWT authentication
func setupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authHandlers *auth.GinHandlers,
	accountsHandlers *accounts.GinHandlers,
	investmentsHandlers *investments.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		// Account routes
		accountsGroup := v1.Group("/accounts")
		accountsGroup.Use(middleware.JWTAuth(jwtSecret))
		{
			accountsGroup.POST("", accountsHandlers.CreateAccountHandler())
			accountsGroup.GET("/:account_id", accountsHandlers.GetAccountHandler())
			accountsGroup.GET("/:account_id/summary", investmentsHandlers.GetAccountSummaryHandler())
			accountsGroup.GET("/:account_id/positions", investmentsHandlers.ListPositionsHandler())
			accountsGroup.POST("/:account_id/orders", investmentsHandlers.PlaceOrderHandler())
		}

		// Order lookup
		ordersGroup := v1.Group("/orders")
		ordersGroup.Use(middleware.JWTAuth(jwtSecret))
		{
			ordersGroup.GET("/:order_id", investmentsHandlers.GetOrderHandler())
		}
	}
}
