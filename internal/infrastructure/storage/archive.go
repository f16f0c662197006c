// Package storage archives receipt screenshots taken after an invoice is issued.
package storage

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/recibos/taxbot/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ContentTypePNG is the content type of portal screenshots
const ContentTypePNG = "image/png"

// Archive stores receipt files
type Archive interface {
	// Store writes data under key and returns where it ended up
	Store(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// ReceiptKey returns the archive key for a submission:
// receipts/<YYYY-MM-DD>/<id>.png
func ReceiptKey(date time.Time, id uuid.UUID) string {
	return path.Join("receipts", date.Format("2006-01-02"), id.String()+".png")
}

// New builds the archive selected by cfg.Backend.
// The "none" backend returns a nil Archive.
func New(cfg config.StorageConfig, logger *zap.Logger) (Archive, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Backend {
	case "", config.StorageNone:
		return nil, nil
	case config.StorageFilesystem:
		a, err := NewFileSystemArchive(cfg.BasePath, logger)
		if err != nil {
			return nil, err
		}
		return a, nil
	case config.StorageS3:
		a, err := NewS3Archive(&cfg, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
