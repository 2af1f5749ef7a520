package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"
	ierr "github.com/yourusername/invoice-desk/errors"
	"github.com/yourusername/invoice-desk/models"
	"github.com/yourusername/invoice-desk/render"
	"github.com/yourusername/invoice-desk/store"
	"github.com/yourusername/invoice-desk/utils"
	"go.uber.org/zap"
)

type BulkRequest struct {
	RawData    string
	IncludePre bool
	Date       string
	Format     render.Format
}

// BulkRowResult reports the outcome for one input line.
type BulkRowResult struct {
	Line          int               `json:"line"`
	Success       bool              `json:"success"`
	InvoiceNumber string            `json:"invoiceNumber,omitempty"`
	Invoice       *models.Invoice   `json:"invoice,omitempty"`
	Format        render.Format     `json:"format,omitempty"`
	ExportURL     string            `json:"exportUrl,omitempty"`
	Error         string            `json:"error,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
}

type BulkService struct {
	repo      store.Repository
	extractor utils.CustomerExtractorInterface
	prefix    string
	floor     int64
	maxLines  int
	logger    *zap.Logger
}

func NewBulkService(repo store.Repository, extractor utils.CustomerExtractorInterface, prefix string, floor int64, maxLines int, logger *zap.Logger) *BulkService {
	return &BulkService{
		repo:      repo,
		extractor: extractor,
		prefix:    prefix,
		floor:     floor,
		maxLines:  maxLines,
		logger:    logger,
	}
}

// Process extracts one customer per line and creates an invoice for each.
// Rows fail independently and every allocated number stays consumed.
func (s *BulkService) Process(ctx context.Context, req BulkRequest) ([]BulkRowResult, error) {
	lines := utils.SplitLines(req.RawData)
	if len(lines) == 0 {
		return nil, ierr.NewError("no lines").
			WithHint("No customer data provided").
			Mark(ierr.ErrValidation)
	}
	if len(lines) > s.maxLines {
		return nil, ierr.NewError("too many lines").
			WithHintf("Too many lines: %d provided, at most %d allowed", len(lines), s.maxLines).
			WithReportableDetails(map[string]any{"lines": len(lines), "max": s.maxLines}).
			Mark(ierr.ErrValidation)
	}
	if strings.TrimSpace(req.Date) == "" {
		return nil, ierr.NewError("missing date").
			WithHint("Invoice date is required").
			Mark(ierr.ErrValidation)
	}
	format := req.Format
	if format == "" {
		format = render.FormatPDF
	}

	customers, err := s.extractor.Extract(ctx, lines, req.IncludePre)
	if err != nil {
		return nil, err
	}
	if len(customers) != len(lines) {
		return nil, ierr.NewError("extraction count mismatch").
			WithHintf("AI extraction returned %d customers for %d lines", len(customers), len(lines)).
			WithReportableDetails(map[string]any{"lines": len(lines), "customers": len(customers)}).
			Mark(ierr.ErrHTTPClient)
	}

	invoices := lo.Map(customers, func(c utils.ExtractedCustomer, i int) *models.Invoice {
		inv := &models.Invoice{
			Date:            strings.TrimSpace(req.Date),
			CustomerName:    strings.TrimSpace(c.Name),
			CustomerPhone:   strings.TrimSpace(c.Phone),
			CustomerAddress: strings.TrimSpace(c.Address),
		}
		if req.IncludePre {
			inv.PreCode = utils.ReconcilePreCode(lines[i], c.PreCode)
		}
		return inv
	})

	results := make([]BulkRowResult, len(lines))
	reached := 0
	allocator := NewAllocator(s.repo.Settings(), s.prefix, s.floor)
	err = allocator.AllocateBatch(ctx, len(invoices), func(i int, allocation *Allocation) error {
		reached = i + 1
		inv := invoices[i]
		inv.InvoiceNumber = allocation.InvoiceNumber
		inv.Sequence = allocation.Sequence
		results[i] = s.persistRow(ctx, i, inv, format)
		return nil
	})
	if err != nil && reached == 0 {
		return nil, err
	}
	if err != nil {
		s.logger.Error("bulk allocation stopped",
			zap.Int("completed", reached),
			zap.Int("total", len(invoices)),
			zap.Error(err))
		message := ierr.DisplayMessage(err, "Invoice number allocation failed")
		for i := reached; i < len(results); i++ {
			results[i] = BulkRowResult{Line: i + 1, Error: message}
		}
	}
	return results, nil
}

func (s *BulkService) persistRow(ctx context.Context, i int, inv *models.Invoice, format render.Format) BulkRowResult {
	row := BulkRowResult{Line: i + 1, InvoiceNumber: inv.InvoiceNumber}

	if err := inv.Validate(); err != nil {
		row.Error = "Missing or invalid customer details"
		row.Fields = models.FieldErrors(err)
		return row
	}
	if err := s.repo.Invoices().Create(ctx, inv); err != nil {
		s.logger.Warn("bulk row failed",
			zap.Int("line", i+1),
			zap.String("invoice_number", inv.InvoiceNumber),
			zap.Error(err))
		row.Error = ierr.DisplayMessage(err, "Failed to save invoice")
		return row
	}

	row.Success = true
	row.Invoice = inv
	row.Format = format
	row.ExportURL = ExportURL(inv.ID, format)
	return row
}

// ExportURL is the API path that downloads an invoice in format.
func ExportURL(id string, format render.Format) string {
	return fmt.Sprintf("/api/invoices/%s/export?format=%s", id, format)
}
