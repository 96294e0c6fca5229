package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"orderflow/internal/config"
	"orderflow/internal/infrastructure/container"
	"orderflow/internal/infrastructure/observability"

	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const serviceName = "orderflow-worker"

// The worker polls the ingestion queue and drives workflow executions. It only
// serves /metrics over HTTP.
func main() {
	cfg := config.Load()
	config.SetupLogging(cfg.LogLevel)

	if cfg.Queue.Backend == config.BackendMemory {
		log.Fatal().Msg("[worker] the memory queue only exists inside the api process; use QUEUE_BACKEND=sqs")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracerProvider(serviceName, cfg.JaegerEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("[worker] failed to initialize tracing")
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	c, err := container.Build(ctx, cfg, prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatal().Err(err).Msg("[worker] failed to wire components")
	}
	defer c.Close()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("[worker] metrics server stopped")
		}
	}()

	c.Worker.Start(ctx)
	<-ctx.Done()
	log.Info().Msg("[worker] shutting down")

	c.Worker.Stop()
	_ = srv.Shutdown(context.Background())
}
