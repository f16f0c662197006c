package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// FileSystemArchive stores receipts below a base directory
type FileSystemArchive struct {
	basePath string
	logger   *zap.Logger
}

// NewFileSystemArchive creates the base directory if needed
func NewFileSystemArchive(basePath string, logger *zap.Logger) (*FileSystemArchive, error) {
	if basePath == "" {
		return nil, errors.New("storage base path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileSystemArchive{basePath: basePath, logger: logger}, nil
}

// Store writes data to <base>/<key> and returns the file path
func (a *FileSystemArchive) Store(ctx context.Context, key string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fullPath, err := a.resolve(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	a.logger.Debug("Receipt stored",
		zap.String("path", fullPath),
		zap.Int("size", len(data)),
	)
	return fullPath, nil
}

// resolve joins key onto the base path, refusing keys that escape it
func (a *FileSystemArchive) resolve(key string) (string, error) {
	if key == "" {
		return "", errors.New("storage key is required")
	}
	if filepath.IsAbs(key) || containsDotDot(key) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}

	fullPath := filepath.Join(a.basePath, filepath.FromSlash(key))
	absBase, err := filepath.Abs(a.basePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base path: %w", err)
	}
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return fullPath, nil
}

// containsDotDot checks if a path contains ".." components
func containsDotDot(p string) bool {
	parts := strings.FieldsFunc(p, func(r rune) bool {
		return r == '/' || r == filepath.Separator
	})
	return slices.Contains(parts, "..")
}
