package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/invoice-desk/config"
	"github.com/yourusername/invoice-desk/handlers"
	"github.com/yourusername/invoice-desk/logger"
	"github.com/yourusername/invoice-desk/middleware"
	"github.com/yourusername/invoice-desk/render"
	"github.com/yourusername/invoice-desk/services"
	"github.com/yourusername/invoice-desk/store"
	"github.com/yourusername/invoice-desk/utils"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Dependencies are the collaborators the router is built from.
type Dependencies struct {
	Config    *config.Config
	Logger    *zap.Logger
	Repo      store.Repository
	Extractor utils.CustomerExtractorInterface
	Renderer  render.Renderer
}

// authLimiter allows perMinute login attempts per client IP.
func authLimiter(perMinute int) *middleware.ClientLimiter {
	if perMinute <= 0 {
		return middleware.NewClientLimiter(rate.Inf, 0, time.Hour)
	}
	return middleware.NewClientLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute, 10*time.Minute)
}

func setupRouter(deps Dependencies) (*gin.Engine, error) {
	if err := handlers.RegisterValidators(); err != nil {
		return nil, err
	}
	cfg := deps.Config
	log := deps.Logger

	gate := services.NewSessionGate(deps.Repo.Settings(), cfg.DefaultPassword, cfg.SessionSecret)
	allocator := services.NewAllocator(deps.Repo.Settings(), cfg.InvoicePrefix, cfg.InvoiceFloor)
	settingsService := services.NewSettingsService(deps.Repo.Settings(), allocator, cfg.LogoSeedPath, log)
	invoiceService := services.NewInvoiceService(deps.Repo, cfg.InvoicePrefix, cfg.InvoiceFloor, cfg.HistoryLimit)
	bulkService := services.NewBulkService(deps.Repo, deps.Extractor, cfg.InvoicePrefix, cfg.InvoiceFloor, cfg.BulkMaxLines, log)

	authHandler := handlers.NewAuthHandler(gate)
	settingsHandler := handlers.NewSettingsHandler(settingsService)
	invoiceHandler := handlers.NewInvoiceHandler(invoiceService, bulkService, settingsService, deps.Renderer)

	router := gin.New()
	router.Use(
		logger.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.CORS(cfg.SessionHeader),
		middleware.ErrorHandler(),
	)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "invoice-desk-api",
		})
	})

	requireSession := middleware.SessionAuthMiddleware(gate, cfg.SessionHeader)

	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		auth.POST("/verify", middleware.RateLimit(authLimiter(cfg.AuthRateLimit)), authHandler.Verify)
		auth.GET("/session", requireSession, authHandler.Session)

		settings := api.Group("/settings")
		settings.GET("/logo", middleware.OptionalSessionAuth(!cfg.LogoPublicRead, gate, cfg.SessionHeader), settingsHandler.GetLogo)
		settings.POST("/logo", requireSession, settingsHandler.SetLogo)
		settings.GET("/last-invoice", requireSession, settingsHandler.GetLastInvoice)
		settings.PATCH("/last-invoice", requireSession, settingsHandler.UpdateLastInvoice)
		settings.GET("/invoice-number", requireSession, settingsHandler.PeekInvoiceNumber)
		settings.POST("/invoice-number/increment", requireSession, settingsHandler.IncrementInvoiceNumber)

		invoices := api.Group("/invoices", requireSession)
		invoices.POST("", invoiceHandler.CreateInvoice)
		invoices.GET("", invoiceHandler.ListInvoices)
		invoices.GET("/:id", invoiceHandler.GetInvoice)
		invoices.GET("/:id/export", invoiceHandler.ExportInvoice)
		invoices.POST("/bulk-process", invoiceHandler.BulkProcess)
	}

	return router, nil
}
