package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/ops-dashboard/config"
	"github.com/ErlanBelekov/ops-dashboard/internal/broadcast"
	"github.com/ErlanBelekov/ops-dashboard/internal/clock"
	"github.com/ErlanBelekov/ops-dashboard/internal/domain"
	"github.com/ErlanBelekov/ops-dashboard/internal/email"
	"github.com/ErlanBelekov/ops-dashboard/internal/health"
	"github.com/ErlanBelekov/ops-dashboard/internal/infrastructure/memory"
	ctxlog "github.com/ErlanBelekov/ops-dashboard/internal/log"
	"github.com/ErlanBelekov/ops-dashboard/internal/metrics"
	"github.com/ErlanBelekov/ops-dashboard/internal/reaper"
	httptransport "github.com/ErlanBelekov/ops-dashboard/internal/transport/http"
	"github.com/ErlanBelekov/ops-dashboard/internal/transport/http/handler"
	"github.com/ErlanBelekov/ops-dashboard/internal/transport/http/middleware"
	"github.com/ErlanBelekov/ops-dashboard/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	hashKey, err := tokenHashKey(cfg.TokenHashKey)
	if err != nil {
		log.Fatalf("token hash key: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.Real()

	// Event feed
	events := broadcast.New(broadcast.Options{
		Capacity:  cfg.EventBufferSize,
		QueueSize: cfg.SubscriberQueueSize,
		Keepalive: cfg.Keepalive(),
		Clock:     clk,
	}, logger)

	// Credentials
	tokenRepo := memory.NewTokenRepository(hashKey, cfg.TokenTTL(), clk)
	sessionRepo := memory.NewSessionRepository(cfg.SessionTTL(), clk)
	sweeper := reaper.New(tokenRepo, sessionRepo, events, logger, cfg.ReaperSchedule)

	sender := email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger)
	if cfg.Env == "local" {
		logger.Warn("mail transport not configured; magic links will be logged")
	}

	authUsecase := usecase.NewAuthUsecase(tokenRepo, sessionRepo, sweeper, sender, events, clk, usecase.AuthConfig{
		AllowedEmails:      cfg.AllowedEmails,
		ShowAllowlistError: cfg.ShowAllowlistError,
		AppOrigin:          cfg.AppOrigin,
	}, logger)

	metrics.Register()
	metrics.RegisterStoreGauges(prometheus.DefaultRegisterer, tokenRepo.Len, sessionRepo.Len)
	checker := health.NewChecker(logger, prometheus.DefaultRegisterer,
		health.Dependency{Name: "broadcaster", Pinger: events},
	)

	router := httptransport.NewRouter(logger, httptransport.Handlers{
		Auth: handler.NewAuthHandler(authUsecase, handler.CookieConfig{
			TTL:    cfg.SessionTTL(),
			Secure: cfg.Env == "production",
		}, logger),
		Events:         handler.NewEventsHandler(events, logger),
		Users:          handler.NewUsersHandler(authUsecase),
		RequireSession: middleware.RequireSession(authUsecase, handler.SessionCookie),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server started", "port", cfg.Port, "allow_list_size", len(cfg.AllowedEmails))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return sweeper.Start(gctx)
	})

	events.Publishf(domain.LevelInfo, "[server] listening on :%s", cfg.Port)

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		// Stream handlers block until their subscription ends.
		events.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", "error", err)
		}
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server shut down")
}

// tokenHashKey returns the configured HMAC key, or a random one. Tokens do
// not survive a restart, so a per-process key loses nothing.
func tokenHashKey(configured string) ([]byte, error) {
	if configured != "" {
		return []byte(configured), nil
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
