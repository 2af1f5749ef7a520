package models

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestInvoiceNumberRoundTrip(t *testing.T) {
	number := FormatInvoiceNumber("BLH", 2800)
	assert.Equal(t, "BLH#2800", number)

	prefix, n, err := ParseInvoiceNumber(number)
	require.NoError(t, err)
	assert.Equal(t, "BLH", prefix)
	assert.Equal(t, int64(2800), n)
}

func TestParseInvoiceNumberRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "2800", "#2800", "BLH#", "BLH#abc", "BLH#-3"} {
		_, _, err := ParseInvoiceNumber(s)
		assert.Error(t, err, s)
	}
}

func TestIsPreCode(t *testing.T) {
	assert.True(t, IsPreCode("1234567"))
	assert.False(t, IsPreCode("123456"))
	assert.False(t, IsPreCode("12345678"))
	assert.False(t, IsPreCode("12a4567"))
}

func TestInvoiceValidate(t *testing.T) {
	base := func() *Invoice {
		return &Invoice{
			InvoiceNumber:   "BLH#2800",
			Date:            "01/02/2025",
			CustomerName:    "Jane Doe",
			CustomerPhone:   "0908",
			CustomerAddress: "Lagos",
		}
	}

	tests := []struct {
		name        string
		mutate      func(i *Invoice)
		failedField string
	}{
		{"valid without pre code", func(i *Invoice) {}, ""},
		{"valid with pre code", func(i *Invoice) { i.PreCode = strPtr("1234567") }, ""},
		{"short pre code", func(i *Invoice) { i.PreCode = strPtr("12345") }, "preCode"},
		{"missing name", func(i *Invoice) { i.CustomerName = "" }, "customerName"},
		{"missing date", func(i *Invoice) { i.Date = "" }, "date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := base()
			tt.mutate(inv)
			err := inv.Validate()
			if tt.failedField == "" {
				assert.NoError(t, err)
				return
			}
			var verrs validator.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Equal(t, tt.failedField, verrs[0].Field())
		})
	}
}

func TestFieldErrors(t *testing.T) {
	inv := &Invoice{InvoiceNumber: "BLH#1", PreCode: strPtr("12")}
	fields := FieldErrors(inv.Validate())

	assert.Equal(t, "is required", fields["customerName"])
	assert.Equal(t, "is required", fields["date"])
	assert.Equal(t, "must be exactly 7 digits", fields["preCode"])
	assert.NotContains(t, fields, "invoiceNumber")
}

func TestFieldErrorsIgnoresOtherErrors(t *testing.T) {
	assert.Nil(t, FieldErrors(assert.AnError))
}
