package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wallet-settlement-gateway/config"
	httpHandler "wallet-settlement-gateway/internal/adapter/http/handler"
	pgStorage "wallet-settlement-gateway/internal/adapter/storage/postgres"
	redisStorage "wallet-settlement-gateway/internal/adapter/storage/redis"
	"wallet-settlement-gateway/internal/core/ports"
	"wallet-settlement-gateway/internal/service"
	"wallet-settlement-gateway/pkg/envelope"
	"wallet-settlement-gateway/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Wallet Settlement Gateway")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Apply migrations when enabled
	if cfg.Database.Migrate {
		if err := pgStorage.RunMigrations(cfg.Database.DSN(), cfg.Database.MigrationsDir, log); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
	}

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	playerRepo := pgStorage.NewPlayerRepo(pool)
	sessionRepo := pgStorage.NewSessionRepo(pool)
	walletRepo := pgStorage.NewWalletRepo(pool)
	journalRepo := pgStorage.NewJournalRepo(pool)
	transactor := pgStorage.NewTransactor(pool, cfg.Database.LockTimeout)

	// Initialize Redis stores
	respCache := redisStorage.NewSettledResponseCache(rdb)

	// Initialize core services
	bankRegistry, err := service.NewBankRegistry(cfg.Provider)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize bank registry")
	}
	hashVerifier := service.NewMD5HashVerifier()
	tokenSvc := service.NewJWTTokenService(cfg.Token.Secret, cfg.Token.Expiry, cfg.Token.Issuer)

	// Initialize the settlement engine
	settlementSvc := service.NewSettlementService(
		bankRegistry,
		hashVerifier,
		tokenSvc,
		playerRepo,
		sessionRepo,
		walletRepo,
		journalRepo,
		respCache,
		transactor,
		log,
	)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		SettlementSvc:  settlementSvc,
		Codec:          envelope.New(),
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
