package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jcmexdev/commerce-core/internal/commerce/ledger"
	"github.com/jcmexdev/commerce-core/internal/commerce/payments"
	"github.com/jcmexdev/commerce-core/internal/commerce/session"
	"github.com/jcmexdev/commerce-core/internal/commerce/webhook"
	"github.com/jcmexdev/commerce-core/internal/httpx"
	"github.com/jcmexdev/commerce-core/internal/pkg/telemetry"
	"github.com/jcmexdev/commerce-core/internal/storage/sqlite"
)

func main() {
	telemetry.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.SetupTracer(ctx, getEnv("OTEL_SERVICE_NAME", "commerce-api"))
	if err != nil {
		slog.Error("failed to initialise tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Error("tracer shutdown error", "error", err)
		}
	}()

	store, err := sqlite.Open(getEnv("DATABASE_PATH", "./data/commerce.db"))
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	sessions := session.NewRedisStore(getEnv("REDIS_ADDR", "redis-cache:6379"), "commerce")
	sessionTTL := getDurationEnv("SESSION_TTL_MINUTES", 24*time.Hour)

	resolver := session.NewResolver(sessions)
	accounts := session.NewManager(sessions, store.Users, sessionTTL)
	orderLedger := ledger.New(store.Orders)
	processor := payments.NewProcessor(store.Intents, orderLedger, payments.NewFakeProvider())
	reconciler := webhook.NewReconciler(getEnv("WEBHOOK_SECRET", "dev-webhook-secret"), processor)

	handler := httpx.NewHandler(resolver, accounts, orderLedger, processor, reconciler, sessionTTL)
	router := httpx.NewRouter(handler)

	addr := ":" + getEnv("PORT", "8000")
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("commerce API listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil && minutes > 0 {
			return time.Duration(minutes) * time.Minute
		}
	}
	return fallback
}
