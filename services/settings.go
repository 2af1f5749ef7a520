package services

import (
	"context"
	"encoding/base64"
	"os"
	"strings"

	"github.com/h2non/filetype"
	ierr "github.com/yourusername/invoice-desk/errors"
	"github.com/yourusername/invoice-desk/models"
	"github.com/yourusername/invoice-desk/store"
	"go.uber.org/zap"
)

const maxLogoBytes = 5 << 20

type SettingsService struct {
	settings     store.SettingsRepository
	allocator    Allocator
	logoSeedPath string
	logger       *zap.Logger
}

func NewSettingsService(settings store.SettingsRepository, allocator Allocator, logoSeedPath string, logger *zap.Logger) *SettingsService {
	return &SettingsService{
		settings:     settings,
		allocator:    allocator,
		logoSeedPath: logoSeedPath,
		logger:       logger,
	}
}

// Logo returns the stored logo data URI, or nil when there is none. The
// configured seed file is stored on the first read.
func (s *SettingsService) Logo(ctx context.Context) (*string, error) {
	setting, err := s.settings.Get(ctx, models.SettingAppLogo)
	if err == nil {
		if setting.Value == "" {
			return nil, nil
		}
		return &setting.Value, nil
	}
	if !ierr.IsNotFound(err) {
		return nil, err
	}
	if s.logoSeedPath == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(s.logoSeedPath)
	if err != nil {
		// a missing seed is not worth failing the request over
		s.logger.Warn("failed to read logo seed", zap.String("path", s.logoSeedPath), zap.Error(err))
		return nil, nil
	}
	uri, err := imageDataURI(raw)
	if err != nil {
		s.logger.Warn("logo seed is not an image", zap.String("path", s.logoSeedPath), zap.Error(err))
		return nil, nil
	}
	seeded, err := s.settings.InitIfAbsent(ctx, models.SettingAppLogo, uri)
	if err != nil {
		return nil, err
	}
	return &seeded.Value, nil
}

// SetLogo stores logo, which must be a base64 image data URI. An empty value
// clears the logo.
func (s *SettingsService) SetLogo(ctx context.Context, logo string) (*string, error) {
	logo = strings.TrimSpace(logo)
	if logo != "" {
		if err := validateLogo(logo); err != nil {
			return nil, err
		}
	}
	setting, err := s.settings.Upsert(ctx, models.SettingAppLogo, logo)
	if err != nil {
		return nil, err
	}
	if setting.Value == "" {
		return nil, nil
	}
	return &setting.Value, nil
}

// LastInvoiceNumber returns the last issued number and the next one.
func (s *SettingsService) LastInvoiceNumber(ctx context.Context) (last int64, next int64, err error) {
	last, err = s.allocator.Current(ctx)
	if err != nil {
		return 0, 0, err
	}
	return last, last + 1, nil
}

func (s *SettingsService) SetLastInvoiceNumber(ctx context.Context, value int64) (int64, error) {
	return s.allocator.SetCounter(ctx, value)
}

func (s *SettingsService) PeekNextInvoiceNumber(ctx context.Context) (int64, error) {
	return s.allocator.PeekNext(ctx)
}

func (s *SettingsService) AllocateInvoiceNumber(ctx context.Context) (*Allocation, error) {
	return s.allocator.AllocateOne(ctx)
}

func invalidLogo(reason string) error {
	return ierr.NewError("invalid logo").
		WithHint(reason).
		Mark(ierr.ErrValidation)
}

func validateLogo(uri string) error {
	header, payload, ok := strings.Cut(uri, ",")
	if !ok || !strings.HasPrefix(header, "data:image/") || !strings.HasSuffix(header, ";base64") {
		return invalidLogo("Logo must be a base64 image data URI")
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > maxLogoBytes {
		return invalidLogo("Logo must be smaller than 5MB")
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return invalidLogo("Logo is not valid base64")
	}
	if !filetype.IsImage(raw) {
		return invalidLogo("Logo content is not a recognised image")
	}
	return nil
}

func imageDataURI(raw []byte) (string, error) {
	kind, err := filetype.Match(raw)
	if err != nil {
		return "", err
	}
	if !filetype.IsImage(raw) {
		return "", ierr.NewError("not an image").Mark(ierr.ErrValidation)
	}
	return "data:" + kind.MIME.Value + ";base64," + base64.StdEncoding.EncodeToString(raw), nil
}
