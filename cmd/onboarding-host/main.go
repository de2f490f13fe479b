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

	"go.uber.org/zap"

	"vendor-onboarding/internal/common/config"
	"vendor-onboarding/internal/common/logger"
	"vendor-onboarding/internal/common/metrics"
	"vendor-onboarding/internal/common/observability"
	"vendor-onboarding/internal/host"
	"vendor-onboarding/internal/onboarding"
	"vendor-onboarding/internal/platform"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting onboarding host...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs, err := observability.New(observability.Options{
		ServiceName:    cfg.Observability.ServiceName,
		JaegerEndpoint: cfg.Observability.JaegerEndpoint,
		SampleRatio:    cfg.Observability.SampleRatio,
	})
	if err != nil {
		zapLog.Fatal("observability setup failed", zap.Error(err))
	}
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := platform.New(ctx, cfg, log, platform.Options{ConnectRetries: 10})
	if err != nil {
		zapLog.Fatal("platform initialization failed", zap.Error(err))
	}
	defer p.Close()
	zapLog.Info("All external service clients initialized", zap.Strings("sinks", p.Dispatcher.Sinks()))

	opts := []host.SessionOption{
		host.WithDispatcher(p.Dispatcher),
		host.WithSessionObserver(onboarding.Observers{metrics.StepRecorder{}, obs}),
	}
	if p.Flags != nil {
		opts = append(opts, host.WithCompletionChecker(p.Flags))
	}
	sessions := host.NewSessionManager(p.StoreFactory(), host.SessionConfig{
		IdleTimeout: config.GetDuration(cfg.Sessions.IdleTimeout),
		CallTimeout: config.GetDuration(cfg.Sessions.CallTimeout),
	}, log, opts...)

	router := host.NewRouter(host.RouterConfig{
		Mode:    cfg.Server.Mode,
		Checks:  p.ReadinessChecks(),
		Version: cfg.App.Version,
	}, host.NewHandler(sessions, log), p.Verifier(), log)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go sessions.RunSweeper(ctx, config.GetDuration(cfg.Sessions.SweepInterval))

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zapLog.Info("Shutdown signal received, draining requests...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}
	sessions.CloseAll()

	zapLog.Info("Onboarding host stopped gracefully")
}
