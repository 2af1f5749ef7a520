package services

import (
	"context"
	"strings"

	ierr "github.com/yourusername/invoice-desk/errors"
	"github.com/yourusername/invoice-desk/models"
	"github.com/yourusername/invoice-desk/store"
)

type CreateInvoiceInput struct {
	// InvoiceNumber is the number the client previewed. When set it must
	// match the number allocated for this invoice.
	InvoiceNumber   string
	Date            string
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	PreCode         *string
}

type CreateInvoiceResult struct {
	Invoice           *models.Invoice `json:"invoice"`
	NextInvoiceNumber int64           `json:"nextInvoiceNumber"`
}

type InvoiceService struct {
	repo         store.Repository
	prefix       string
	floor        int64
	historyLimit int
}

func NewInvoiceService(repo store.Repository, prefix string, floor int64, historyLimit int) *InvoiceService {
	return &InvoiceService{
		repo:         repo,
		prefix:       prefix,
		floor:        floor,
		historyLimit: historyLimit,
	}
}

// Create allocates the next number and stores the invoice in one transaction,
// so a failed insert leaves the counter untouched.
func (s *InvoiceService) Create(ctx context.Context, in CreateInvoiceInput) (*CreateInvoiceResult, error) {
	invoice := &models.Invoice{
		Date:            strings.TrimSpace(in.Date),
		CustomerName:    strings.TrimSpace(in.CustomerName),
		CustomerPhone:   strings.TrimSpace(in.CustomerPhone),
		CustomerAddress: strings.TrimSpace(in.CustomerAddress),
		PreCode:         normalizePreCode(in.PreCode),
	}

	var result *CreateInvoiceResult
	err := s.repo.Transaction(ctx, func(tx store.Repository) error {
		allocation, err := NewAllocator(tx.Settings(), s.prefix, s.floor).AllocateOne(ctx)
		if err != nil {
			return err
		}
		if in.InvoiceNumber != "" && in.InvoiceNumber != allocation.InvoiceNumber {
			return ierr.NewError("stale invoice number").
				WithHintf("Invoice number %s is no longer available, the next number is %s", in.InvoiceNumber, allocation.InvoiceNumber).
				WithReportableDetails(map[string]any{"nextInvoiceNumber": allocation.InvoiceNumber}).
				Mark(ierr.ErrVersionConflict)
		}

		invoice.InvoiceNumber = allocation.InvoiceNumber
		invoice.Sequence = allocation.Sequence
		if err := invoice.Validate(); err != nil {
			return ValidationError(err)
		}
		if err := tx.Invoices().Create(ctx, invoice); err != nil {
			return err
		}

		result = &CreateInvoiceResult{
			Invoice:           invoice,
			NextInvoiceNumber: allocation.Sequence + 1,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// List returns the most recent invoices, highest number first.
func (s *InvoiceService) List(ctx context.Context) ([]models.Invoice, error) {
	return s.repo.Invoices().List(ctx, s.historyLimit)
}

func (s *InvoiceService) Get(ctx context.Context, id string) (*models.Invoice, error) {
	return s.repo.Invoices().GetByID(ctx, id)
}

// normalizePreCode treats a blank code as absent.
func normalizePreCode(code *string) *string {
	if code == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*code)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
