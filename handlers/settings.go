package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/invoice-desk/services"
)

type SettingsHandler struct {
	settings *services.SettingsService
}

func NewSettingsHandler(settings *services.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

type SetLogoRequest struct {
	Logo string `json:"logo"`
}

type UpdateLastInvoiceRequest struct {
	InvoiceNumber *int64 `json:"invoiceNumber" binding:"required"`
}

func (h *SettingsHandler) GetLogo(c *gin.Context) {
	logo, err := h.settings.Logo(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logo": logo})
}

func (h *SettingsHandler) SetLogo(c *gin.Context) {
	var req SetLogoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(services.ValidationError(err))
		return
	}

	logo, err := h.settings.SetLogo(c.Request.Context(), req.Logo)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logo": logo})
}

func (h *SettingsHandler) GetLastInvoice(c *gin.Context) {
	last, next, err := h.settings.LastInvoiceNumber(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"lastInvoiceNumber": last,
		"nextInvoiceNumber": next,
	})
}

func (h *SettingsHandler) UpdateLastInvoice(c *gin.Context) {
	var req UpdateLastInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(services.ValidationError(err))
		return
	}

	value, err := h.settings.SetLastInvoiceNumber(c.Request.Context(), *req.InvoiceNumber)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lastInvoiceNumber": value})
}

// PeekInvoiceNumber returns the number the next invoice will get without
// reserving it.
func (h *SettingsHandler) PeekInvoiceNumber(c *gin.Context) {
	next, err := h.settings.PeekNextInvoiceNumber(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nextInvoiceNumber": next})
}

// IncrementInvoiceNumber reserves the next number without creating an
// invoice. CreateInvoice allocates its own number, so calling this after a
// create skips a number.
func (h *SettingsHandler) IncrementInvoiceNumber(c *gin.Context) {
	allocation, err := h.settings.AllocateInvoiceNumber(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, allocation)
}
