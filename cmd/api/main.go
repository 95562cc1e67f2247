package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/bryanwahyu/radiology-analyzer/internal/application"
	appanalysis "github.com/bryanwahyu/radiology-analyzer/internal/application/analysis"
	"github.com/bryanwahyu/radiology-analyzer/internal/config"
	"github.com/bryanwahyu/radiology-analyzer/internal/infra/ai/openai"
	"github.com/bryanwahyu/radiology-analyzer/internal/infra/httpserver"
	"github.com/bryanwahyu/radiology-analyzer/internal/infra/pdf"
	"github.com/bryanwahyu/radiology-analyzer/internal/infra/session"
	"github.com/bryanwahyu/radiology-analyzer/internal/middleware"
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05",
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Getenv, level, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

// run loads the config, wires the app and serves until ctx is done.
// Config errors (missing API key included) return before anything listens.
func run(ctx context.Context, getenv func(string) string, level *slog.LevelVar, logger *slog.Logger) error {
	cfg, err := config.Load(config.ResolvePath(getenv), getenv)
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		logger.Warn("unknown log level, using info", "level", cfg.Log.Level)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// session store
	store, err := session.New(cfg.Session.TTL, time.Now)
	if err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	go store.StartCleanup(ctx, cfg.Session.CleanupInterval, logger)

	// inference client
	client := openai.NewClient(openai.Options{
		APIKey:      cfg.Inference.APIKey,
		BaseURL:     cfg.Inference.BaseURL,
		Model:       cfg.Inference.Model,
		Temperature: cfg.Inference.Temperature,
		TopP:        cfg.Inference.TopP,
		MaxTokens:   cfg.Inference.MaxTokens,
		Timeout:     cfg.Inference.Timeout,
	})

	exporter := pdf.NewExporter(pdf.Options{
		Title:      cfg.Report.Title,
		Subtitle:   cfg.Report.Subtitle,
		Disclaimer: cfg.Report.Disclaimer,
		Filename:   cfg.Report.Filename,
		Compress:   cfg.Report.Compress,
	})

	metrics := middleware.NewMetrics()
	metrics.TrackStoredAnalyses(store.Len)

	// init service
	svc := &appanalysis.Service{
		AI:             client,
		Store:          store,
		Exporter:       exporter,
		Clock:          application.SystemClock{},
		Observer:       metrics,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		MaxImagePixels: cfg.Server.MaxImagePixels,
	}

	handler := httpserver.NewRouter(svc, httpserver.Options{
		Logger:         logger,
		Metrics:        metrics,
		RateLimiter:    middleware.NewRateLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst),
		Health:         map[string]middleware.HealthChecker{"session": middleware.CheckFunc(store.Ping)},
		CORSOrigins:    cfg.Server.CORSOrigins,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Model:          client.Model(),
		TrustProxy:     cfg.Server.TrustProxy,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// run server
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "model", client.Model())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// graceful shutdown
	logger.Info("shutting down server...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
