package store

import (
	"context"
	"errors"
	"strings"

	ierr "github.com/yourusername/invoice-desk/errors"
	"github.com/yourusername/invoice-desk/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingsRepository persists string key/value settings.
type SettingsRepository interface {
	// Get returns ierr.ErrNotFound when the key has never been written.
	Get(ctx context.Context, key string) (*models.Setting, error)
	Upsert(ctx context.Context, key, value string) (*models.Setting, error)
	// InitIfAbsent writes value only if key does not exist and returns the stored setting.
	InitIfAbsent(ctx context.Context, key, value string) (*models.Setting, error)
	// CompareAndSwap sets key to next only if it currently holds prev.
	CompareAndSwap(ctx context.Context, key, prev, next string) (bool, error)
}

// InvoiceRepository persists finalized invoices. There is no update or delete.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *models.Invoice) error
	// List returns at most limit invoices, highest invoice number first.
	List(ctx context.Context, limit int) ([]models.Invoice, error)
	GetByID(ctx context.Context, id string) (*models.Invoice, error)
}

// Repository groups the repositories and scopes them to a transaction.
type Repository interface {
	Settings() SettingsRepository
	Invoices() InvoiceRepository
	Transaction(ctx context.Context, fn func(tx Repository) error) error
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Settings() SettingsRepository {
	return &gormSettings{db: s.db}
}

func (s *GormStore) Invoices() InvoiceRepository {
	return &gormInvoices{db: s.db}
}

// Transaction runs fn against a store bound to one database transaction.
// The transaction is rolled back if fn returns an error.
func (s *GormStore) Transaction(ctx context.Context, fn func(tx Repository) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

type gormSettings struct {
	db *gorm.DB
}

func (r *gormSettings) Get(ctx context.Context, key string) (*models.Setting, error) {
	var setting models.Setting
	err := r.db.WithContext(ctx).Where(map[string]any{"key": key}).First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ierr.WithError(err).
				WithHintf("Setting %s not found", key).
				Mark(ierr.ErrNotFound)
		}
		return nil, wrapDBError(err, "Failed to read setting")
	}
	return &setting, nil
}

func (r *gormSettings) Upsert(ctx context.Context, key, value string) (*models.Setting, error) {
	setting := models.Setting{Key: key, Value: value}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
	if err != nil {
		return nil, wrapDBError(err, "Failed to save setting")
	}
	return r.Get(ctx, key)
}

func (r *gormSettings) InitIfAbsent(ctx context.Context, key, value string) (*models.Setting, error) {
	setting := models.Setting{Key: key, Value: value}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoNothing: true,
	}).Create(&setting).Error
	if err != nil {
		return nil, wrapDBError(err, "Failed to initialise setting")
	}
	return r.Get(ctx, key)
}

func (r *gormSettings) CompareAndSwap(ctx context.Context, key, prev, next string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Setting{}).
		Where(map[string]any{"key": key, "value": prev}).
		Update("value", next)
	if result.Error != nil {
		return false, wrapDBError(result.Error, "Failed to update setting")
	}
	return result.RowsAffected == 1, nil
}

type gormInvoices struct {
	db *gorm.DB
}

func (r *gormInvoices) Create(ctx context.Context, invoice *models.Invoice) error {
	if err := r.db.WithContext(ctx).Create(invoice).Error; err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHintf("Invoice %s already exists", invoice.InvoiceNumber).
				Mark(ierr.ErrAlreadyExists)
		}
		return wrapDBError(err, "Failed to save invoice")
	}
	return nil
}

func (r *gormInvoices) List(ctx context.Context, limit int) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.WithContext(ctx).
		Order("sequence DESC").
		Limit(limit).
		Find(&invoices).Error
	if err != nil {
		return nil, wrapDBError(err, "Failed to fetch invoices")
	}
	return invoices, nil
}

func (r *gormInvoices) GetByID(ctx context.Context, id string) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ierr.WithError(err).
				WithHint("Invoice not found").
				Mark(ierr.ErrNotFound)
		}
		return nil, wrapDBError(err, "Failed to fetch invoice")
	}
	return &invoice, nil
}

func wrapDBError(err error, hint string) error {
	return ierr.WithError(err).WithHint(hint).Mark(ierr.ErrDatabase)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
