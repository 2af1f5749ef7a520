package services

import (
	ierr "github.com/yourusername/invoice-desk/errors"
	"github.com/yourusername/invoice-desk/models"
)

// ValidationError marks err as a validation failure and attaches the
// offending fields so callers can show them next to the inputs.
func ValidationError(err error) error {
	b := ierr.WithError(err).WithHint("Invalid request")
	if fields := models.FieldErrors(err); len(fields) > 0 {
		b = b.WithReportableDetails(map[string]any{"fields": fields})
	}
	return b.Mark(ierr.ErrValidation)
}
