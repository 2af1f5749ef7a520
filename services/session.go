package services

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	ierr "github.com/yourusername/invoice-desk/errors"
	"github.com/yourusername/invoice-desk/models"
	"github.com/yourusername/invoice-desk/store"
)

// SessionGate guards the API with one shared password and at most one
// active session. Issuing a token replaces the previous one.
type SessionGate struct {
	settings        store.SettingsRepository
	defaultPassword string
	secret          []byte
	now             func() time.Time
}

func NewSessionGate(settings store.SettingsRepository, defaultPassword, secret string) *SessionGate {
	if secret == "" {
		secret = uuid.NewString() + uuid.NewString()
	}
	return &SessionGate{
		settings:        settings,
		defaultPassword: defaultPassword,
		secret:          []byte(secret),
		now:             time.Now,
	}
}

// Verify checks password against the stored one, seeding the default on
// first use, and returns a fresh session token.
func (g *SessionGate) Verify(ctx context.Context, password string) (string, error) {
	expected, err := g.password(ctx)
	if err != nil {
		return "", err
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(expected)) != 1 {
		return "", ierr.NewError("password mismatch").
			WithHint("Invalid password").
			Mark(ierr.ErrUnauthorized)
	}

	token, err := g.issueToken()
	if err != nil {
		return "", err
	}
	if _, err := g.settings.Upsert(ctx, models.SettingActiveSession, token); err != nil {
		return "", err
	}
	return token, nil
}

// Authorize accepts token only if it is the currently active session.
func (g *SessionGate) Authorize(ctx context.Context, token string) error {
	if token == "" {
		return ierr.NewError("missing session token").
			WithHint("Session required").
			Mark(ierr.ErrUnauthorized)
	}
	if err := g.parseToken(token); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid session").
			Mark(ierr.ErrUnauthorized)
	}

	active, err := g.settings.Get(ctx, models.SettingActiveSession)
	if err != nil {
		if ierr.IsNotFound(err) {
			return ierr.NewError("no active session").
				WithHint("Invalid session").
				Mark(ierr.ErrUnauthorized)
		}
		return err
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(active.Value)) != 1 {
		return ierr.NewError("session superseded").
			WithHint("Session expired, please log in again").
			Mark(ierr.ErrUnauthorized)
	}
	return nil
}

func (g *SessionGate) password(ctx context.Context) (string, error) {
	setting, err := g.settings.Get(ctx, models.SettingAppPassword)
	if err == nil {
		return setting.Value, nil
	}
	if !ierr.IsNotFound(err) {
		return "", err
	}
	setting, err = g.settings.InitIfAbsent(ctx, models.SettingAppPassword, g.defaultPassword)
	if err != nil {
		return "", err
	}
	return setting.Value, nil
}

func (g *SessionGate) issueToken() (string, error) {
	claims := jwt.RegisteredClaims{
		ID:       uuid.NewString(),
		IssuedAt: jwt.NewNumericDate(g.now()),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to create session").
			Mark(ierr.ErrSystem)
	}
	return signed, nil
}

func (g *SessionGate) parseToken(token string) error {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return g.secret, nil
	})
	if err != nil {
		return err
	}
	if !parsed.Valid {
		return fmt.Errorf("invalid token")
	}
	return nil
}
