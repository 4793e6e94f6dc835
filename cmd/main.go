package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/okian/forecasthub/internal/adapters/http/api"
	"github.com/okian/forecasthub/internal/adapters/http/swagger"
	"github.com/okian/forecasthub/internal/adapters/intent"
	"github.com/okian/forecasthub/internal/adapters/registry"
	"github.com/okian/forecasthub/internal/adapters/repository"
	"github.com/okian/forecasthub/internal/adapters/ws"
	app "github.com/okian/forecasthub/internal/app"
	"github.com/okian/forecasthub/internal/config"
	"github.com/okian/forecasthub/internal/domain/baseline"
	"github.com/okian/forecasthub/pkg/logger"
	"github.com/okian/forecasthub/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readHeaderTimeout         = 5 * time.Second
	idleTimeout               = 60 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> .env -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(strings.ToLower(cfg.LogFormat))); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Runtime log level follows the config file.
	if path := config.Path(); path != "" {
		if err := config.Watch(ctx, path, applyReload, func(err error) {
			loggerInstance.Warn(ctx, "config reload failed", logger.Error(err))
		}); err != nil {
			loggerInstance.Warn(ctx, "config watch disabled", logger.String("path", path), logger.Error(err))
		}
	}

	svc, err := newHub(cfg)
	if err != nil {
		loggerInstance.Error(ctx, "failed to build hub", logger.Error(err))
		os.Exit(1)
	}
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start hub", logger.Error(err))
		os.Exit(1)
	}

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(cfg, svc),
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	svc.Stop(shutdownCtx)

	loggerInstance.Info(ctx, "server stopped")
}

// applyReload applies the settings that can change without a restart.
func applyReload(cfg *config.Config) {
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return
	}
	logger.Get().Info(context.Background(), "log level reloaded", logger.String("log_level", cfg.LogLevel))
}

// newHub wires the store, registry, generator and extractor into the hub.
func newHub(cfg *config.Config) (*app.Service, error) {
	start, err := cfg.Start()
	if err != nil {
		return nil, err
	}
	genOpts := []baseline.Option{baseline.WithHorizon(cfg.HorizonHours), baseline.WithStart(start)}
	if cfg.BaselineSeed != 0 {
		genOpts = append(genOpts, baseline.WithSeed(cfg.BaselineSeed))
	}

	return app.New(
		app.WithLogger(logger.Get().Named("hub")),
		app.WithQueueSize(cfg.CommandQueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithSendTimeout(cfg.SendTimeout()),
		app.WithStore(repository.NewForecastStore()),
		app.WithRegistry(registry.New(registry.WithSendTimeout(cfg.SendTimeout()))),
		app.WithGenerator(baseline.NewSynthetic(genOpts...)),
		app.WithExtractor(newExtractor(cfg)),
	), nil
}

// newExtractor returns the HTTP extractor behind a fallback, or the static
// reply when no extraction service is configured.
func newExtractor(cfg *config.Config) intent.Extractor {
	if cfg.IntentURL == "" {
		return intent.Static{}
	}
	return intent.NewFallback(
		intent.NewHTTPExtractor(cfg.IntentURL, intent.WithTimeout(cfg.IntentTimeout())),
		logger.Get().Named("intent"),
	)
}

// newHandler registers every route and wraps the mux.
func newHandler(cfg *config.Config, svc *app.Service) http.Handler {
	wsHandler := ws.NewHandler(svc,
		ws.WithSendBuffer(cfg.SendBuffer),
		ws.WithWriteTimeout(cfg.WriteTimeout()),
		ws.WithPongTimeout(cfg.PongTimeout()),
		ws.WithMaxMessageBytes(cfg.MaxMessageBytes),
		ws.WithChatRate(cfg.ChatRatePerSec, cfg.ChatBurst),
		ws.WithAllowedOrigins(cfg.AllowedOrigins),
	)
	apiServer := api.NewServer(svc, svc,
		api.WithWebSocket(wsHandler),
		api.WithAllowedOrigins(cfg.AllowedOrigins),
	)
	mux := http.NewServeMux()
	apiServer.Register(mux)
	swagger.Register(mux)
	return apiServer.Handler(mux)
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
