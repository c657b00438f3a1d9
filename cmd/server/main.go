package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GoPolymarket/buildmymeta/internal/capture"
	"github.com/GoPolymarket/buildmymeta/internal/config"
	"github.com/GoPolymarket/buildmymeta/internal/handler"
	"github.com/GoPolymarket/buildmymeta/internal/middleware"
	"github.com/GoPolymarket/buildmymeta/internal/model"
	"github.com/GoPolymarket/buildmymeta/internal/pkg/logger"
	"github.com/GoPolymarket/buildmymeta/internal/repository"
	"github.com/GoPolymarket/buildmymeta/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// 2. Open the sink backend
	ctx := context.Background()
	handle, err := repository.OpenSinkHandle(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s sink: %v", cfg.Sink.Kind, err)
	}
	logger.Info("✅ Connected to sink", "kind", cfg.Sink.Kind)

	// Audit mirror (optional Redis)
	var mirror service.AuditMirror
	var auditReader handler.AuditReader
	if cfg.Redis.Addr != "" {
		redisClient, err := repository.NewRedisClient(cfg)
		if err == nil {
			logger.Info("✅ Connected to Redis, mirroring audit rows")
			m := repository.NewRedisAuditMirror(redisClient, cfg.Redis.AuditListKey, cfg.Redis.AuditListMax)
			mirror, auditReader = m, m
			defer redisClient.Close()
		} else {
			logger.Error("⚠️ Failed to connect to Redis, audit rows are CSV-only", "error", err)
		}
	}

	// 3. Build the capture pipeline
	pipeline, err := service.NewPipeline(ctx, service.PipelineConfig{
		Kind:                 model.BackendKind(cfg.Sink.Kind),
		Handle:               handle.Value,
		EnableDefaultCapture: cfg.Capture.Enabled,
		Identity:             cfg.Capture.Identity,
		LogDir:               cfg.Capture.LogDir,
		Capture: capture.Options{
			MaxBodyBytes: cfg.Capture.MaxBodyBytes,
			Redactor:     capture.NewRedactor(cfg.Capture.RedactHeaders, cfg.Capture.RedactKeys),
		},
		AuditMirror: mirror,
	})
	if err != nil {
		log.Fatalf("Failed to initialize metadata pipeline: %v", err)
	}

	// 4. Setup Router
	r := newRouter(cfg, pipeline, handler.NewItemHandler(), handler.NewAuditHandler(auditReader))

	// 5. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("🚀 buildmymeta demo started", "port", cfg.Server.Port, "sink", cfg.Sink.Kind)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("🛑 Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	if err := pipeline.Shutdown(shutdownCtx); err != nil {
		logger.Error("Metadata pipeline did not drain", "error", err)
	}
	if err := handle.Close(shutdownCtx); err != nil {
		logger.Error("Failed to close sink", "error", err)
	}

	logger.Info("Server exiting")
}

func newRouter(cfg *config.Config, pipeline *service.Pipeline, items *handler.ItemHandler, audit *handler.AuditHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// Global Middleware
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.IdentityMiddleware(middleware.HeaderUserID))
	r.Use(middleware.MetadataMiddleware(pipeline))
	r.Use(middleware.ErrorHandler())

	// Health Check
	r.GET("/health", handler.Health(pipeline))

	// Metrics Endpoint
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	r.GET("/items", items.List)
	r.GET("/items/:id", items.Get)
	r.POST("/items", items.Create)
	r.DELETE("/items/:id", items.Delete)
	r.GET("/audit", audit.List)

	return r
}
