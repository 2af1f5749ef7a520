package render

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	ierr "github.com/yourusername/invoice-desk/errors"
	"go.uber.org/zap"
)

const defaultRenderTimeout = 30 * time.Second

type ChromedpConfig struct {
	// RemoteURL points at a running Chrome DevTools endpoint. When empty a
	// local headless browser is launched.
	RemoteURL string
	NoSandbox bool
	Timeout   time.Duration
	Logger    *zap.Logger
}

// ChromedpRenderer prints documents with headless Chrome.
type ChromedpRenderer struct {
	config      ChromedpConfig
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

func NewChromedpRenderer(cfg ChromedpConfig) *ChromedpRenderer {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultRenderTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &ChromedpRenderer{config: cfg, logger: logger}
	if cfg.RemoteURL != "" {
		r.allocCtx, r.allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-extensions", true),
			chromedp.Flag("font-render-hinting", "none"),
		)
		if cfg.NoSandbox {
			opts = append(opts, chromedp.Flag("no-sandbox", true))
		}
		r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}
	return r
}

func (r *ChromedpRenderer) Render(ctx context.Context, doc *Document, format Format) (*Result, error) {
	if doc == nil {
		return nil, ierr.NewError("document is nil").Mark(ierr.ErrValidation)
	}
	if format != FormatPDF && format != FormatJPEG {
		return nil, ierr.NewError("unsupported format").
			WithHintf("Unsupported format %q, use pdf or jpeg", format).
			Mark(ierr.ErrValidation)
	}
	html, err := BuildHTML(doc)
	if err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrSystem)
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	browserCtx, browserCancel := chromedp.NewContext(r.allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			r.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	defer browserCancel()
	// tie the browser tab to the request deadline
	stop := context.AfterFunc(ctx, browserCancel)
	defer stop()

	var data []byte
	err = chromedp.Run(browserCtx,
		chromedp.EmulateViewport(CanvasWidthPx, CanvasHeightPx),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("#invoice", chromedp.ByID),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			if format == FormatJPEG {
				data, err = captureJPEG(ctx)
			} else {
				data, err = printPDF(ctx)
			}
			return err
		}),
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ierr.WithError(err).
				WithHintf("Rendering timed out after %v", r.config.Timeout).
				Mark(ierr.ErrUnavailable)
		}
		r.logger.Error("chromedp rendering failed", zap.Error(err))
		return nil, ierr.WithError(err).
			WithHint("Failed to render invoice").
			Mark(ierr.ErrUnavailable)
	}
	if len(data) == 0 {
		return nil, ierr.NewError("renderer returned no data").
			WithHint("Failed to render invoice").
			Mark(ierr.ErrSystem)
	}

	duration := time.Since(start)
	r.logger.Info("invoice rendered",
		zap.String("invoice_number", doc.InvoiceNumber),
		zap.String("format", string(format)),
		zap.Int("bytes", len(data)),
		zap.Duration("duration", duration))

	return &Result{
		Data:           data,
		ContentType:    format.ContentType(),
		Filename:       doc.Filename(format),
		RenderDuration: duration,
	}, nil
}

type pdfParams struct {
	paperWidth  float64
	paperHeight float64
}

// buildPDFParams returns the page size in inches, as Chrome expects.
func buildPDFParams() pdfParams {
	return pdfParams{
		paperWidth:  mmToInches(PrintWidthMM),
		paperHeight: mmToInches(PrintHeightMM),
	}
}

func printPDF(ctx context.Context) ([]byte, error) {
	params := buildPDFParams()
	data, _, err := page.PrintToPDF().
		WithPrintBackground(true).
		WithPaperWidth(params.paperWidth).
		WithPaperHeight(params.paperHeight).
		WithMarginTop(0).
		WithMarginRight(0).
		WithMarginBottom(0).
		WithMarginLeft(0).
		WithPreferCSSPageSize(true).
		Do(ctx)
	return data, err
}

// jpegClip covers the canvas at the print aspect ratio and scales it so the
// captured image is PrintWidthPx x PrintHeightPx.
func jpegClip() *page.Viewport {
	scale := float64(PrintWidthPx) / CanvasWidthPx
	return &page.Viewport{
		X:      0,
		Y:      0,
		Width:  CanvasWidthPx,
		Height: float64(PrintHeightPx) / scale,
		Scale:  scale,
	}
}

func captureJPEG(ctx context.Context) ([]byte, error) {
	return page.CaptureScreenshot().
		WithFormat(page.CaptureScreenshotFormatJpeg).
		WithQuality(100).
		WithClip(jpegClip()).
		WithCaptureBeyondViewport(true).
		Do(ctx)
}

func (r *ChromedpRenderer) Close() error {
	if r.allocCancel != nil {
		r.allocCancel()
	}
	return nil
}

var _ Renderer = (*ChromedpRenderer)(nil)
