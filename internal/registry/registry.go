package registry

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"go.uber.org/zap"

	"corrector-proxy/internal/apierr"
	"corrector-proxy/internal/validation"
)

const (
	TokenPrefix     = "tok_"
	tokenEntropyLen = 24
)

// Registry issues, rotates and resolves install tokens.
type Registry struct {
	store Store
	now   func() time.Time
	log   *zap.Logger
}

type Option func(*Registry)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func New(store Store, log *zap.Logger, opts ...Option) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Registry{
		store: store,
		now:   time.Now,
		log:   log.Named("registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register issues a fresh token for installID, replacing any previous one.
// The plaintext token is returned once and never stored.
func (r *Registry) Register(ctx context.Context, installID, version string) (string, error) {
	if !validation.IsInstallID(installID) {
		return "", apierr.New(apierr.InvalidRequest, "Invalid install_id")
	}

	token, err := newToken()
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	if err := r.store.Upsert(ctx, installID, HashToken(token), r.now()); err != nil {
		r.log.Error("register failed", zap.String("install_id", installID), zap.Error(err))
		return "", fmt.Errorf("register installation: %w", err)
	}

	r.log.Info("installation registered",
		zap.String("install_id", installID),
		zap.String("version", version),
	)
	return token, nil
}

// Resolve returns the installation holding token, or nil if none does.
func (r *Registry) Resolve(ctx context.Context, token string) (*Installation, error) {
	if token == "" {
		return nil, nil
	}
	inst, err := r.store.FindByTokenHash(ctx, HashToken(token))
	if err != nil {
		return nil, fmt.Errorf("resolve token: %w", err)
	}
	return inst, nil
}

// Touch refreshes last-seen. Failures are logged and swallowed.
func (r *Registry) Touch(ctx context.Context, installID string) {
	if err := r.store.Touch(ctx, installID, r.now()); err != nil {
		r.log.Warn("touch failed", zap.String("install_id", installID), zap.Error(err))
	}
}

// SetBanned flips the ban flag for installID.
func (r *Registry) SetBanned(ctx context.Context, installID string, banned bool) error {
	if !validation.IsInstallID(installID) {
		return apierr.New(apierr.InvalidRequest, "Invalid install_id")
	}
	return r.store.SetBanned(ctx, installID, banned)
}

// HashToken returns the hex SHA-256 of token, the only form that is persisted.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newToken() (string, error) {
	buf := make([]byte, tokenEntropyLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return TokenPrefix + hex.EncodeToString(buf), nil
}
