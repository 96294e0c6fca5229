package routes

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "orderflow/docs" // swagger spec registration
	"orderflow/internal/adapter/http/handlers"
	"orderflow/internal/config"
	"orderflow/internal/infrastructure/container"
	"orderflow/internal/infrastructure/observability"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const serviceName = "orderflow-api"

// Run wires the application from the environment and serves the API until
// SIGINT/SIGTERM. With an in-memory queue the worker runs in this process too.
func Run() {
	cfg := config.Load()
	config.SetupLogging(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracerProvider(serviceName, cfg.JaegerEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("[api] failed to initialize tracing")
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	c, err := container.Build(ctx, cfg, prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatal().Err(err).Msg("[api] failed to wire components")
	}
	defer c.Close()

	if c.InProcessWorker() {
		c.Worker.Start(ctx)
		defer c.Worker.Stop()
	}

	router := gin.New()
	setMiddlewares(router)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	registerRoutes(router, handlers.NewOrderHandler(c.OrderUseCase), handlers.NewExecutionHandler(c.ExecutionUseCase))

	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: router}
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("[api] listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to startup the application")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("[api] graceful shutdown failed")
	}
}

func registerRoutes(router *gin.Engine, orderHandler *handlers.OrderHandler, executionHandler *handlers.ExecutionHandler) {
	v1 := router.Group("/v1")
	addPingRoutes(v1)
	addOrderRoutes(v1, orderHandler, executionHandler)
}

func setMiddlewares(router *gin.Engine) {
	router.Use(requestLogger())
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Error().Interface("panic", recovered).Str("path", c.Request.URL.Path).Msg("Recovered from panic")
		c.AbortWithStatus(http.StatusInternalServerError)
	}))
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("[http] request")
	}
}
