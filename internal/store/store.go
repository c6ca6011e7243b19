package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cryptosnap/config"
	"cryptosnap/internal/models"
)

// ErrNotFound is returned by Load when no snapshot exists for a timeframe.
var ErrNotFound = errors.New("snapshot not found")

// Store keeps the latest snapshot per timeframe. Save overwrites.
type Store interface {
	Save(ctx context.Context, tf models.Timeframe, snap models.MarketSnapshot) error
	Load(ctx context.Context, tf models.Timeframe) (*models.MarketSnapshot, error)
	Close() error
}

// New builds the backend selected by storage.backend.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch strings.ToLower(cfg.Storage.Backend) {
	case "", "redis":
		return NewRedisFromConfig(ctx, cfg.Storage.Redis)
	case "s3":
		return NewS3FromConfig(ctx, cfg.Storage.S3, cfg.Cryptosnap.Version)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
