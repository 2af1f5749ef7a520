package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Invoice is a finalized delivery invoice. Rows are never updated or deleted.
type Invoice struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt       time.Time `json:"createdAt"`
	InvoiceNumber   string    `gorm:"uniqueIndex;size:50;not null" json:"invoiceNumber" validate:"required"`
	Sequence        int64     `gorm:"index;not null" json:"-"` // numeric suffix of InvoiceNumber
	Date            string    `gorm:"size:50;not null" json:"date" validate:"required"`
	CustomerName    string    `gorm:"type:text;not null" json:"customerName" validate:"required"`
	CustomerPhone   string    `gorm:"size:100;not null" json:"customerPhone" validate:"required"`
	CustomerAddress string    `gorm:"type:text;not null" json:"customerAddress" validate:"required"`
	PreCode         *string   `gorm:"size:7" json:"preCode" validate:"omitempty,precode"`
}

// TableName overrides the table name
func (Invoice) TableName() string {
	return "invoices"
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// FormatInvoiceNumber renders n as "<prefix>#<n>".
func FormatInvoiceNumber(prefix string, n int64) string {
	return fmt.Sprintf("%s#%d", prefix, n)
}

// ParseInvoiceNumber splits "<prefix>#<n>" into its parts.
func ParseInvoiceNumber(s string) (string, int64, error) {
	idx := strings.LastIndex(s, "#")
	if idx <= 0 || idx == len(s)-1 {
		return "", 0, fmt.Errorf("invoice number %q is not in PREFIX#N form", s)
	}
	n, err := strconv.ParseInt(s[idx+1:], 10, 64)
	if err != nil || n < 0 {
		return "", 0, fmt.Errorf("invoice number %q has a non-numeric suffix", s)
	}
	return s[:idx], n, nil
}
