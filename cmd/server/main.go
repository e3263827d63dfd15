package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/readtrack/readtrack/internal/apperror"
	"github.com/readtrack/readtrack/internal/auth"
	"github.com/readtrack/readtrack/internal/config"
	"github.com/readtrack/readtrack/internal/database"
	"github.com/readtrack/readtrack/internal/handler"
	"github.com/readtrack/readtrack/internal/logger"
	"github.com/readtrack/readtrack/internal/middleware"
	"github.com/readtrack/readtrack/internal/repository"
	"github.com/readtrack/readtrack/internal/response"
	"github.com/readtrack/readtrack/internal/router"
	"github.com/readtrack/readtrack/internal/service"
	"github.com/readtrack/readtrack/internal/validation"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().
		Str("version", handler.Version).
		Str("environment", cfg.App.Environment).
		Msg("starting ReadTrack server")

	// Connect to PostgreSQL
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	log.Info().Str("driver", cfg.Database.Driver).Msg("connected to PostgreSQL")

	// Connect to Redis only when it backs rate limiting
	var (
		counter middleware.Counter
		redisHC handler.Pinger
	)
	if cfg.Security.RateLimiting.Enabled {
		rdb, err := database.NewRedis(cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer rdb.Close()
		counter, redisHC = rdb, rdb
		log.Info().Msg("connected to Redis")
	}

	// Token validation protects write routes when a secret is configured
	var tokens middleware.TokenValidator
	if cfg.Security.Tokens.Enabled() {
		tokens = auth.NewTokenService(cfg.Security.Tokens)
	} else {
		log.Warn().Msg("security.tokens.secret not set, write and admin routes are unauthenticated")
	}

	// Initialize repositories
	store := repository.NewEntityStore(db, log)
	bookRepo := repository.NewBookRepository(db, store)

	// Initialize services
	bookSvc := service.NewBookService(store, bookRepo, service.NewAuthorResolver(log), validation.New(), log)

	classifier := apperror.NewClassifier(apperror.ModeFromEnvironment(cfg.App.Environment), log)
	normalizer := response.NewNormalizer(log)

	// Initialize handlers
	h := handler.New(db, redisHC, log, bookSvc, classifier, normalizer)

	// Initialize middleware
	mw := middleware.New(counter, log, cfg, classifier, normalizer)

	// Set up router
	r := router.New(h, mw, cfg, tokens)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
