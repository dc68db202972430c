package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	vigor "github.com/nanoncore/nano-vigor"
	"github.com/nanoncore/nano-vigor/internal/config"
	"github.com/nanoncore/nano-vigor/internal/health"
	"github.com/nanoncore/nano-vigor/internal/logger"
	"github.com/nanoncore/nano-vigor/outputs"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to YAML config (environment only when empty)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger.Init(cfg.Logging)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	s, err := vigor.NewSensor(cfg.RouterConfig(), log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create sensor")
	}

	metricsHandler, err := outputs.Handler(outputs.NewPrometheusExporter(s))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register exporter")
	}

	healthHandler := health.New(s)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metricsHandler)
	mux.Handle("/health", healthHandler)

	server := &http.Server{
		Addr:         cfg.HTTP.Listen,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("listen", cfg.HTTP.Listen).Msg("http server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	log.Info().
		Str("sensor", s.Name()).
		Str("router", cfg.Router.Host).
		Str("transport", cfg.Router.Transport).
		Msg("starting vigor sensor")

	healthHandler.SetRunning(true)
	done := make(chan struct{})
	go func() {
		s.Run(ctx, cfg.Poll.Interval)
		close(done)
	}()

	<-ctx.Done()
	log.Warn().Msg("shutdown signal received")
	healthHandler.SetRunning(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shutdown http server")
	}

	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Warn().Msg("refresh still running at shutdown")
	}

	log.Info().Msg("vigor sensor stopped")
}
