package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type StoreConfig struct {
	Driver      string // "sqlite", "postgres" or "memory"
	Path        string // sqlite file
	DatabaseURL string // postgres DSN
}

// GormStore implements Store on a SQL database through GORM.
type GormStore struct {
	db *gorm.DB
}

// OpenStore opens the store selected by cfg.Driver and migrates its schema.
func OpenStore(ctx context.Context, cfg StoreConfig, log *zap.Logger) (Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "memory":
		log.Warn("using in-memory installation store; tokens will not survive restart")
		return NewMemoryStore(), nil
	case "postgres":
		dialector = postgres.Open(cfg.DatabaseURL)
	case "sqlite", "":
		if dir := filepath.Dir(cfg.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create storage dir: %w", err)
			}
		}
		dialector = sqlite.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Error),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}

	store, err := NewGormStore(ctx, db)
	if err != nil {
		return nil, err
	}

	if cfg.Driver != "postgres" {
		if err := db.WithContext(ctx).Exec("PRAGMA journal_mode = WAL").Error; err != nil {
			log.Warn("sqlite WAL mode not enabled", zap.Error(err))
		}
	}

	log.Info("installation store ready", zap.String("driver", db.Dialector.Name()))
	return store, nil
}

// NewGormStore wraps an open connection and migrates the installations table.
func NewGormStore(ctx context.Context, db *gorm.DB) (*GormStore, error) {
	if err := db.WithContext(ctx).AutoMigrate(&Installation{}); err != nil {
		return nil, fmt.Errorf("migrate installations: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Upsert(ctx context.Context, installID, tokenHash string, now time.Time) error {
	rec := Installation{
		InstallID:  installID,
		TokenHash:  tokenHash,
		Plan:       DefaultPlan,
		CreatedAt:  now,
		LastSeenAt: now,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "install_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"token_hash", "last_seen_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("upsert installation: %w", err)
	}
	return nil
}

func (s *GormStore) FindByTokenHash(ctx context.Context, tokenHash string) (*Installation, error) {
	var inst Installation
	err := s.db.WithContext(ctx).Where("token_hash = ?", tokenHash).Take(&inst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find installation: %w", err)
	}
	return &inst, nil
}

func (s *GormStore) Touch(ctx context.Context, installID string, now time.Time) error {
	err := s.db.WithContext(ctx).Model(&Installation{}).
		Where("install_id = ?", installID).
		Update("last_seen_at", now).Error
	if err != nil {
		return fmt.Errorf("touch installation: %w", err)
	}
	return nil
}

func (s *GormStore) SetBanned(ctx context.Context, installID string, banned bool) error {
	res := s.db.WithContext(ctx).Model(&Installation{}).
		Where("install_id = ?", installID).
		Update("banned", banned)
	if res.Error != nil {
		return fmt.Errorf("set banned: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
