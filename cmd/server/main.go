package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Mohamed-Samy26/go-stream-anomaly-detector/internal/api"
	"github.com/Mohamed-Samy26/go-stream-anomaly-detector/internal/config"
	"github.com/Mohamed-Samy26/go-stream-anomaly-detector/internal/logger"
	"github.com/Mohamed-Samy26/go-stream-anomaly-detector/internal/metrics"
	"github.com/Mohamed-Samy26/go-stream-anomaly-detector/internal/notify"
	"github.com/Mohamed-Samy26/go-stream-anomaly-detector/internal/pipeline"
	"github.com/Mohamed-Samy26/go-stream-anomaly-detector/internal/store"
	"github.com/Mohamed-Samy26/go-stream-anomaly-detector/internal/stream"
	"github.com/Mohamed-Samy26/go-stream-anomaly-detector/internal/tracing"
)

func main() {
	cfgPath := env("CONFIG_PATH", "configs/config.yaml")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		cfg = config.Default()
	}
	log := logger.New(env("LOG_LEVEL", cfg.LogLevel))
	if err != nil {
		log.Warn().Err(err).Str("path", cfgPath).Msg("config not loaded, using defaults")
	}

	metrics.MustRegister()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	closer, err := tracing.Init(ctx, tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		ServiceName:  cfg.Tracing.ServiceName,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SampleRatio:  cfg.Tracing.SampleRatio,
	})
	if err != nil {
		log.Error().Err(err).Msg("tracing init failed")
	} else {
		defer func() { _ = closer(context.Background()) }()
	}

	db, err := store.Open(cfg.Storage.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("open store")
	}
	defer db.Close()

	notifier := notify.NewSlack(cfg.Slack.Enabled, cfg.Slack.Webhook)

	gen := stream.New(cfg.Stream.AnomalyProb, cfg.Stream.NoiseLevel, cfg.Stream.Seed)

	pipe, err := pipeline.New(log, db, notifier, gen, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("build pipeline")
	}
	go pipe.Run(ctx)

	srv := api.NewServer(api.Deps{
		Log: log, Store: db, Pipeline: pipe, AuthToken: cfg.AuthToken,
	}, api.Config{Addr: cfg.Server.Addr})
	if err := srv.Run(ctx); err != nil {
		log.Error().Err(err).Msg("server stopped")
	}
}

func env(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
