package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/jobdeck/api/internal/config"
	"github.com/jobdeck/api/internal/handler"
	infraRedis "github.com/jobdeck/api/internal/infrastructure/redis"
	"github.com/jobdeck/api/internal/pending"
	"github.com/jobdeck/api/internal/pkg/clock"
	"github.com/jobdeck/api/internal/repository"
	"github.com/jobdeck/api/internal/service/twofactor"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	slog.Info("Starting JobDeck API...")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := repository.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Database connection failed", slog.Any("error", err))
		os.Exit(1)
	}

	redisClient, err := infraRedis.NewClient(infraRedis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		slog.Error("Redis connection failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("Redis connected")

	twoFactorRepo := repository.NewTwoFactorRepository(db.Pool)
	auditRepo := repository.NewAuditRepository(db.Pool)

	zapLogger, _ := zap.NewProduction()
	defer zapLogger.Sync()

	pendingStore := pending.NewStore(clock.System{}, zapLogger)
	pendingStore.Start()

	twoFactorService, err := twofactor.NewService(cfg.TwoFactor, twoFactorRepo, auditRepo, pendingStore, redisClient)
	if err != nil {
		slog.Error("Two-factor service init failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("Two-factor service initialized", slog.String("issuer", cfg.TwoFactor.Issuer))

	healthHandler := handler.NewHealthHandler(db, redisClient)
	twoFactorHandler := handler.NewTwoFactorHandler(twoFactorService)

	router := handler.NewRouter(cfg, healthHandler, twoFactorHandler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		slog.Info("Server starting", slog.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	srv.Shutdown(shutdownCtx)
	pendingStore.Stop()
	redisClient.Close()
	db.Close()
	slog.Info("Server stopped")
}
