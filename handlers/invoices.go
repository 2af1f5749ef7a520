package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/yourusername/invoice-desk/logger"
	"github.com/yourusername/invoice-desk/render"
	"github.com/yourusername/invoice-desk/services"
	"go.uber.org/zap"
)

type InvoiceHandler struct {
	invoices *services.InvoiceService
	bulk     *services.BulkService
	settings *services.SettingsService
	renderer render.Renderer
}

func NewInvoiceHandler(invoices *services.InvoiceService, bulk *services.BulkService, settings *services.SettingsService, renderer render.Renderer) *InvoiceHandler {
	return &InvoiceHandler{
		invoices: invoices,
		bulk:     bulk,
		settings: settings,
		renderer: renderer,
	}
}

type CreateInvoiceRequest struct {
	InvoiceNumber   string  `json:"invoiceNumber"`
	Date            string  `json:"date" binding:"required"`
	CustomerName    string  `json:"customerName" binding:"required"`
	CustomerPhone   string  `json:"customerPhone" binding:"required"`
	CustomerAddress string  `json:"customerAddress" binding:"required"`
	PreCode         *string `json:"preCode" binding:"omitempty,precode"`
}

type BulkProcessRequest struct {
	RawData    string `json:"rawData" binding:"required"`
	IncludePre bool   `json:"includePre"`
	Date       string `json:"date" binding:"required"`
	Format     string `json:"format" binding:"omitempty,oneof=pdf jpeg jpg"`
}

func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(services.ValidationError(err))
		return
	}

	result, err := h.invoices.Create(c.Request.Context(), services.CreateInvoiceInput{
		InvoiceNumber:   req.InvoiceNumber,
		Date:            req.Date,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
		PreCode:         req.PreCode,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	logger.FromGin(c).Info("invoice created",
		zap.String("invoice_number", result.Invoice.InvoiceNumber),
		zap.String("invoice_id", result.Invoice.ID))
	c.JSON(http.StatusCreated, result)
}

func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	invoices, err := h.invoices.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, invoices)
}

func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	invoice, err := h.invoices.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

// ExportInvoice streams the print file for one invoice.
func (h *InvoiceHandler) ExportInvoice(c *gin.Context) {
	format, err := render.ParseFormat(c.Query("format"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	ctx := c.Request.Context()
	invoice, err := h.invoices.Get(ctx, c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	logo, err := h.settings.Logo(ctx)
	if err != nil {
		_ = c.Error(err)
		return
	}

	doc := render.NewDocument(invoice, "")
	if logo != nil {
		doc.Logo = *logo
	}
	result, err := h.renderer.Render(ctx, doc, format)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", strconv.Quote(result.Filename)))
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

// BulkProcess creates one invoice per input line. Per-row failures are
// reported in the body; only batch-level problems produce an error status.
func (h *InvoiceHandler) BulkProcess(c *gin.Context) {
	var req BulkProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(services.ValidationError(err))
		return
	}
	format, err := render.ParseFormat(req.Format)
	if err != nil {
		_ = c.Error(err)
		return
	}

	results, err := h.bulk.Process(c.Request.Context(), services.BulkRequest{
		RawData:    req.RawData,
		IncludePre: req.IncludePre,
		Date:       req.Date,
		Format:     format,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	failed := lo.CountBy(results, func(row services.BulkRowResult) bool { return !row.Success })
	logger.FromGin(c).Info("bulk batch processed",
		zap.Int("rows", len(results)),
		zap.Int("failed", failed))
	c.JSON(http.StatusOK, gin.H{"invoices": results})
}
