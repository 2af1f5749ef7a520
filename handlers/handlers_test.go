package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	ierr "github.com/yourusername/invoice-desk/errors"
	"github.com/yourusername/invoice-desk/middleware"
	"github.com/yourusername/invoice-desk/render"
	"github.com/yourusername/invoice-desk/services"
	"github.com/yourusername/invoice-desk/store"
	"github.com/yourusername/invoice-desk/testutil"
	"github.com/yourusername/invoice-desk/utils"
	"go.uber.org/zap"
)

const sessionHeader = "X-App-Session"

type MockExtractor struct {
	ExtractFunc func(ctx context.Context, lines []string, includePre bool) ([]utils.ExtractedCustomer, error)
	Calls       int
}

func (m *MockExtractor) Extract(ctx context.Context, lines []string, includePre bool) ([]utils.ExtractedCustomer, error) {
	m.Calls++
	return m.ExtractFunc(ctx, lines, includePre)
}

type MockRenderer struct {
	RenderFunc func(ctx context.Context, doc *render.Document, format render.Format) (*render.Result, error)
}

func (m *MockRenderer) Render(ctx context.Context, doc *render.Document, format render.Format) (*render.Result, error) {
	return m.RenderFunc(ctx, doc, format)
}

func (m *MockRenderer) Close() error { return nil }

type testEnv struct {
	router    *gin.Engine
	store     *store.GormStore
	gate      *services.SessionGate
	extractor *MockExtractor
	renderer  *MockRenderer
	token     string
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, RegisterValidators())

	s := store.NewGormStore(testutil.NewDB(t))
	gate := services.NewSessionGate(s.Settings(), "bu2025", "test-secret")
	allocator := services.NewAllocator(s.Settings(), "BLH", 2799)
	settingsService := services.NewSettingsService(s.Settings(), allocator, "", zap.NewNop())

	env := &testEnv{
		store: s,
		gate:  gate,
		extractor: &MockExtractor{ExtractFunc: func(ctx context.Context, lines []string, includePre bool) ([]utils.ExtractedCustomer, error) {
			return utils.RuleExtractor{}.Extract(ctx, lines, includePre)
		}},
		renderer: &MockRenderer{RenderFunc: func(ctx context.Context, doc *render.Document, format render.Format) (*render.Result, error) {
			return &render.Result{Data: []byte("rendered"), ContentType: format.ContentType(), Filename: doc.Filename(format)}, nil
		}},
	}

	authHandler := NewAuthHandler(gate)
	settingsHandler := NewSettingsHandler(settingsService)
	invoiceHandler := NewInvoiceHandler(
		services.NewInvoiceService(s, "BLH", 2799, 100),
		services.NewBulkService(s, env.extractor, "BLH", 2799, 20, zap.NewNop()),
		settingsService,
		env.renderer,
	)

	router := gin.New()
	router.Use(middleware.ErrorHandler())
	requireSession := middleware.SessionAuthMiddleware(gate, sessionHeader)

	router.POST("/api/auth/verify", authHandler.Verify)
	router.GET("/api/auth/session", requireSession, authHandler.Session)
	router.GET("/api/settings/logo", settingsHandler.GetLogo)
	router.POST("/api/settings/logo", requireSession, settingsHandler.SetLogo)
	router.GET("/api/settings/last-invoice", requireSession, settingsHandler.GetLastInvoice)
	router.PATCH("/api/settings/last-invoice", requireSession, settingsHandler.UpdateLastInvoice)
	router.GET("/api/settings/invoice-number", requireSession, settingsHandler.PeekInvoiceNumber)
	router.POST("/api/settings/invoice-number/increment", requireSession, settingsHandler.IncrementInvoiceNumber)
	router.POST("/api/invoices", requireSession, invoiceHandler.CreateInvoice)
	router.GET("/api/invoices", requireSession, invoiceHandler.ListInvoices)
	router.GET("/api/invoices/:id", requireSession, invoiceHandler.GetInvoice)
	router.GET("/api/invoices/:id/export", requireSession, invoiceHandler.ExportInvoice)
	router.POST("/api/invoices/bulk-process", requireSession, invoiceHandler.BulkProcess)
	env.router = router

	token, err := gate.Verify(context.Background(), "bu2025")
	require.NoError(t, err)
	env.token = token
	return env
}

// do sends a request with the current session token.
func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	return e.doWithToken(t, method, path, body, e.token)
}

func (e *testEnv) doWithToken(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(sessionHeader, token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ierr.ErrorResponse {
	t.Helper()
	var resp ierr.ErrorResponse
	decodeJSON(t, w, &resp)
	return resp
}

func fieldErrors(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	fields, _ := decodeError(t, w).Error.Details["fields"].(map[string]any)
	return fields
}
