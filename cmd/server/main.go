package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/cat-backend/internal/config"
	"github.com/stemsi/cat-backend/internal/database"
	"github.com/stemsi/cat-backend/internal/handler"
	"github.com/stemsi/cat-backend/internal/logger"
	"github.com/stemsi/cat-backend/internal/middleware"
	"github.com/stemsi/cat-backend/internal/report"
	"github.com/stemsi/cat-backend/internal/repository"
	"github.com/stemsi/cat-backend/internal/router"
	"github.com/stemsi/cat-backend/internal/service"
	"github.com/stemsi/cat-backend/internal/validator"
	"github.com/stemsi/cat-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting CAT Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	testRepo := repository.NewTestRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	analyticsRepo := repository.NewAnalyticsRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, userRepo, rdb, log)
	userService := service.NewUserService(userRepo, log)
	testService := service.NewTestService(testRepo, log)
	questionService := service.NewQuestionService(questionRepo, testRepo, log)
	sessionService := service.NewSessionService(
		sessionRepo, testRepo, questionRepo,
		service.NewRedisOrderCache(rdb),
		cfg.SessionGrace, log,
	)
	analyticsService := service.NewAnalyticsService(analyticsRepo, cfg.AnalyticsDefaultDays, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:      handler.NewAuthHandler(authService, log),
		User:      handler.NewUserHandler(userService, log),
		Test:      handler.NewTestHandler(testService, log),
		Question:  handler.NewQuestionHandler(questionService, log),
		Session:   handler.NewSessionHandler(sessionService, log),
		Analytics: handler.NewAnalyticsHandler(analyticsService, log),
		Export:    handler.NewExportHandler(sessionService, report.NewPDFRenderer(cfg.ReportTitle), log),
		Health:    handler.NewHealthHandler(pool, database.RedisPinger{Client: rdb}, log),
		WS:        handler.NewWSHandler(sessionService, log, cfg.AllowedOrigins),
	}

	limiters := router.Limiters{
		Auth: middleware.NewRateLimiter(rdb, cfg.AuthRateLimit, cfg.AuthRateWindow, config.CacheKey.AuthRateLimitKey, log),
		API:  middleware.NewRateLimiter(rdb, cfg.APIRateLimit, cfg.APIRateWindow, config.CacheKey.APIRateLimitKey, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	if cfg.SessionSweepInterval > 0 {
		expiryWorker := worker.NewExpiryWorker(sessionService, rdb, cfg.SessionSweepInterval, log)
		workers.Add(1)
		go func() {
			defer workers.Done()
			expiryWorker.Start(workerCtx)
		}()
	} else {
		log.Info().Msg("Session expiry sweep disabled")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, limiters, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for the current sweep to finish.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
