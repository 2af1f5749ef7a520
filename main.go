package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/invoice-desk/config"
	"github.com/yourusername/invoice-desk/logger"
	"github.com/yourusername/invoice-desk/render"
	"github.com/yourusername/invoice-desk/store"
	"github.com/yourusername/invoice-desk/utils"
	"go.uber.org/zap"
)

func newExtractor(cfg *config.Config, zl *zap.Logger) utils.CustomerExtractorInterface {
	if cfg.AIProvider == "rules" {
		return utils.RuleExtractor{}
	}
	if cfg.AIAPIKey == "" {
		zl.Warn("INVOICE_AI_API_KEY is not set, bulk processing will be unavailable")
	}
	return utils.NewAIExtractor(utils.AIExtractorConfig{
		APIKey:     cfg.AIAPIKey,
		BaseURL:    cfg.AIBaseURL,
		Model:      cfg.AIModel,
		Timeout:    cfg.AITimeout,
		MaxRetries: cfg.AIMaxRetries,
	}, zl)
}

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger := logger.New(&logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: "stdout",
	})
	defer func() { _ = zapLogger.Sync() }()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := config.InitDB(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if cfg.SessionSecret == "" {
		zapLogger.Warn("INVOICE_SESSION_SECRET is not set, sessions will not survive a restart")
	}

	renderer := render.NewChromedpRenderer(render.ChromedpConfig{
		RemoteURL: cfg.ChromeRemoteURL,
		NoSandbox: cfg.ChromeNoSandbox,
		Timeout:   cfg.RenderTimeout,
		Logger:    zapLogger,
	})
	defer renderer.Close()

	router, err := setupRouter(Dependencies{
		Config:    cfg,
		Logger:    zapLogger,
		Repo:      store.NewGormStore(db),
		Extractor: newExtractor(cfg, zapLogger),
		Renderer:  renderer,
	})
	if err != nil {
		zapLogger.Fatal("Failed to set up router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		zapLogger.Info("Starting invoice desk API server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server shutdown failed", zap.Error(err))
	}
}
