package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ierr "github.com/yourusername/invoice-desk/errors"
)

func validInput() CreateInvoiceInput {
	return CreateInvoiceInput{
		Date:            "01/02/2025",
		CustomerName:    " Jane Doe ",
		CustomerPhone:   "09087654321",
		CustomerAddress: "12 Allen Avenue\nIkeja\nLagos",
	}
}

func TestCreateInvoice(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	svc := NewInvoiceService(s, "BLH", testFloor, 100)

	in := validInput()
	in.InvoiceNumber = "BLH#2800"
	pre := "1234567"
	in.PreCode = &pre

	res, err := svc.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "BLH#2800", res.Invoice.InvoiceNumber)
	assert.Equal(t, "Jane Doe", res.Invoice.CustomerName)
	assert.Equal(t, int64(2801), res.NextInvoiceNumber)
	require.NotNil(t, res.Invoice.PreCode)
	assert.Equal(t, "1234567", *res.Invoice.PreCode)

	got, err := svc.Get(ctx, res.Invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Invoice.InvoiceNumber, got.InvoiceNumber)
}

func TestCreateInvoiceFailuresLeaveCounterUntouched(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	svc := NewInvoiceService(s, "BLH", testFloor, 100)
	alloc := NewAllocator(s.Settings(), "BLH", testFloor)

	badPre := "12345"
	blankPre := "  "
	tests := []struct {
		name   string
		mutate func(in *CreateInvoiceInput)
		check  func(t *testing.T, err error)
	}{
		{
			name:   "stale invoice number",
			mutate: func(in *CreateInvoiceInput) { in.InvoiceNumber = "BLH#2700" },
			check: func(t *testing.T, err error) {
				assert.True(t, ierr.IsVersionConflict(err))
				assert.Equal(t, "BLH#2800", ierr.ReportableDetails(err)["nextInvoiceNumber"])
			},
		},
		{
			name:   "bad pre code",
			mutate: func(in *CreateInvoiceInput) { in.PreCode = &badPre },
			check: func(t *testing.T, err error) {
				assert.True(t, ierr.IsValidation(err))
				fields, ok := ierr.ReportableDetails(err)["fields"].(map[string]any)
				require.True(t, ok)
				assert.Contains(t, fields, "preCode")
			},
		},
		{
			name:   "missing address",
			mutate: func(in *CreateInvoiceInput) { in.CustomerAddress = " "; in.PreCode = &blankPre },
			check: func(t *testing.T, err error) {
				assert.True(t, ierr.IsValidation(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			_, err := svc.Create(ctx, in)
			require.Error(t, err)
			tt.check(t, err)

			next, err := alloc.PeekNext(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(2800), next)
		})
	}
}

func TestListInvoicesHonoursHistoryLimit(t *testing.T) {
	ctx := context.Background()
	svc := NewInvoiceService(newTestStore(t), "BLH", testFloor, 2)

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, validInput())
		require.NoError(t, err)
	}

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "BLH#2802", list[0].InvoiceNumber)
	assert.Equal(t, "BLH#2801", list[1].InvoiceNumber)
}

func TestGetMissingInvoice(t *testing.T) {
	svc := NewInvoiceService(newTestStore(t), "BLH", testFloor, 100)
	_, err := svc.Get(context.Background(), "missing")
	assert.True(t, ierr.IsNotFound(err))
}
