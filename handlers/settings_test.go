package handlers

import (
	"encoding/base64"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngDataURI = "data:image/png;base64," + base64.StdEncoding.EncodeToString(
	[]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'})

func TestLastInvoiceSettings(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/settings/last-invoice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"lastInvoiceNumber":2799,"nextInvoiceNumber":2800}`, w.Body.String())

	tests := []struct {
		name           string
		body           any
		expectedStatus int
		expectedField  string
	}{
		{"Not An Integer", `{"invoiceNumber":"abc"}`, http.StatusBadRequest, "invoiceNumber"},
		{"Missing Value", map[string]any{}, http.StatusBadRequest, "invoiceNumber"},
		{"Below Floor", map[string]any{"invoiceNumber": 100}, http.StatusBadRequest, ""},
		{"Forward", map[string]any{"invoiceNumber": 3000}, http.StatusOK, ""},
		{"Backwards", map[string]any{"invoiceNumber": 2900}, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPatch, "/api/settings/last-invoice", tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedField != "" {
				assert.Contains(t, fieldErrors(t, w), tt.expectedField)
			}
		})
	}

	w = env.do(t, http.MethodGet, "/api/settings/invoice-number", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"nextInvoiceNumber":3001}`, w.Body.String())

	w = env.do(t, http.MethodPost, "/api/settings/invoice-number/increment", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"invoiceNumber":"BLH#3001"}`, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/settings/last-invoice", nil)
	assert.JSONEq(t, `{"lastInvoiceNumber":3001,"nextInvoiceNumber":3002}`, w.Body.String())
}

func TestNonIntegerValueMessage(t *testing.T) {
	env := setupTestEnv(t)
	w := env.do(t, http.MethodPatch, "/api/settings/last-invoice", `{"invoiceNumber":12.5}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "must be an integer", fieldErrors(t, w)["invoiceNumber"])
}

func TestLogoSettings(t *testing.T) {
	env := setupTestEnv(t)

	w := env.doWithToken(t, http.MethodGet, "/api/settings/logo", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"logo":null}`, w.Body.String())

	w = env.doWithToken(t, http.MethodPost, "/api/settings/logo", map[string]string{"logo": pngDataURI}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/api/settings/logo", map[string]string{"logo": "not a data uri"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/settings/logo", map[string]string{"logo": pngDataURI})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.doWithToken(t, http.MethodGet, "/api/settings/logo", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Logo *string `json:"logo"`
	}
	decodeJSON(t, w, &resp)
	require.NotNil(t, resp.Logo)
	assert.Equal(t, pngDataURI, *resp.Logo)
}

func TestUpdateLastInvoiceRequestShape(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodPatch, "/api/settings/last-invoice", map[string]any{"invoiceNumber": 3000})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"lastInvoiceNumber":3000}`, w.Body.String())

	w = env.do(t, http.MethodPatch, "/api/settings/last-invoice", map[string]any{"newValue": 3100})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "is required", fieldErrors(t, w)["invoiceNumber"])

	w = env.do(t, http.MethodGet, "/api/settings/last-invoice", nil)
	assert.JSONEq(t, `{"lastInvoiceNumber":3000,"nextInvoiceNumber":3001}`, w.Body.String())
}

func TestIncrementReservesANumber(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/settings/invoice-number/increment", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"invoiceNumber":"BLH#2800"}`, w.Body.String())

	result := createInvoice(t, env, validInvoice())
	assert.Equal(t, "BLH#2801", result.Invoice.InvoiceNumber)

	w = env.do(t, http.MethodGet, "/api/settings/invoice-number", nil)
	assert.JSONEq(t, `{"nextInvoiceNumber":2802}`, w.Body.String())
}
