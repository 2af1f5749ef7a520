// Package render turns invoices into print-ready PDF or JPEG files.
package render

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/samber/lo"
	ierr "github.com/yourusername/invoice-desk/errors"
	"github.com/yourusername/invoice-desk/models"
)

type Format string

const (
	FormatPDF  Format = "pdf"
	FormatJPEG Format = "jpeg"
)

// Print and preview geometry. The preview canvas is scaled up to the print size.
const (
	PrintWidthMM    = 700
	PrintHeightMM   = 500
	PrintWidthPx    = 8268
	PrintHeightPx   = 5906
	CanvasWidthPx   = 827
	CanvasHeightPx  = 591
	maxAddressLines = 3
)

// ParseFormat accepts pdf, jpeg or jpg. An empty value means pdf.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pdf":
		return FormatPDF, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	}
	return "", ierr.NewError("unsupported export format").
		WithHintf("Unsupported format %q, use pdf or jpeg", s).
		Mark(ierr.ErrValidation)
}

func (f Format) ContentType() string {
	if f == FormatJPEG {
		return "image/jpeg"
	}
	return "application/pdf"
}

func (f Format) Extension() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return "pdf"
}

// Document is the data printed on one invoice.
type Document struct {
	InvoiceNumber   string
	Date            string
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	PreCode         string
	Logo            string // data URI, optional
}

func NewDocument(inv *models.Invoice, logo string) *Document {
	doc := &Document{
		InvoiceNumber:   inv.InvoiceNumber,
		Date:            inv.Date,
		CustomerName:    inv.CustomerName,
		CustomerPhone:   inv.CustomerPhone,
		CustomerAddress: inv.CustomerAddress,
		Logo:            logo,
	}
	if inv.PreCode != nil {
		doc.PreCode = *inv.PreCode
	}
	return doc
}

// Filename is the download name, e.g. "BLH#2800.pdf".
func (d *Document) Filename(f Format) string {
	return d.InvoiceNumber + "." + f.Extension()
}

// AddressLines returns at most three non-blank address lines.
func (d *Document) AddressLines() []string {
	lines := lo.FilterMap(strings.Split(d.CustomerAddress, "\n"), func(line string, _ int) (string, bool) {
		line = strings.TrimSpace(line)
		return line, line != ""
	})
	if len(lines) > maxAddressLines {
		lines = lines[:maxAddressLines]
	}
	return lines
}

type Result struct {
	Data           []byte
	ContentType    string
	Filename       string
	RenderDuration time.Duration
}

// Renderer produces the print file for a document.
type Renderer interface {
	Render(ctx context.Context, doc *Document, format Format) (*Result, error)
	Close() error
}

type templateData struct {
	*Document
	Logo      template.URL
	Address   []string
	PrintZoom string
}

// BuildHTML renders the invoice layout as a standalone HTML page.
func BuildHTML(doc *Document) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("document is nil")
	}
	data := templateData{
		Document:  doc,
		Address:   doc.AddressLines(),
		PrintZoom: fmt.Sprintf("%.4f", printZoom()),
	}
	// only image data URIs are trusted as src, anything else is dropped
	if strings.HasPrefix(doc.Logo, "data:image/") {
		data.Logo = template.URL(doc.Logo)
	}

	var buf bytes.Buffer
	if err := invoiceTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render invoice template: %w", err)
	}
	return buf.String(), nil
}

// printZoom scales the canvas so it fills the print page width.
func printZoom() float64 {
	return mmToCSSPixels(PrintWidthMM) / CanvasWidthPx
}

func mmToInches(mm float64) float64 {
	return mm / 25.4
}

func mmToCSSPixels(mm float64) float64 {
	return mmToInches(mm) * 96
}
