// Package registry keeps one record per anonymous client installation and
// issues the bearer tokens those installations authenticate with.
package registry

import (
	"context"
	"time"
)

// Installation is one anonymous client install. Only the token hash is stored.
type Installation struct {
	InstallID  string    `json:"install_id" gorm:"column:install_id;primaryKey;size:36"`
	TokenHash  string    `json:"-" gorm:"column:token_hash;not null;index:idx_installations_token_hash;size:64"`
	Banned     bool      `json:"banned" gorm:"column:banned;not null;default:false"`
	Plan       string    `json:"plan" gorm:"column:plan;not null;default:free;size:32"`
	CreatedAt  time.Time `json:"created_at" gorm:"column:created_at;not null"`
	LastSeenAt time.Time `json:"last_seen_at" gorm:"column:last_seen_at;not null"`
}

func (Installation) TableName() string {
	return "installations"
}

const DefaultPlan = "free"

// Store persists installations.
type Store interface {
	// Upsert creates the installation or replaces its token hash, keeping
	// created_at and refreshing last_seen_at.
	Upsert(ctx context.Context, installID, tokenHash string, now time.Time) error

	// FindByTokenHash returns (nil, nil) when no installation holds the hash.
	FindByTokenHash(ctx context.Context, tokenHash string) (*Installation, error)

	// Touch updates last_seen_at.
	Touch(ctx context.Context, installID string, now time.Time) error

	// SetBanned flips the ban flag. ErrNotFound if the installation is unknown.
	SetBanned(ctx context.Context, installID string, banned bool) error

	Close() error
}
