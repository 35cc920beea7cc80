package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/garyjia/business-trip/internal/application/port"
	"go.uber.org/zap"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._\-]`)

// LocalFileStorage keeps uploaded documents under one base directory.
// Keys are slash separated, e.g. trip_data/7/rental_car_drivers_license/license.pdf
type LocalFileStorage struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalFileStorage creates a new LocalFileStorage
func NewLocalFileStorage(baseDir string, logger *zap.Logger) port.FileStorage {
	return &LocalFileStorage{
		baseDir: baseDir,
		logger:  logger,
	}
}

// Save writes content under key, replacing any previous file
func (s *LocalFileStorage) Save(ctx context.Context, key string, content []byte) error {
	fullPath := s.GetFullPath(key)
	if err := s.validatePath(fullPath); err != nil {
		return err
	}

	parentDir := filepath.Dir(fullPath)
	if err := os.MkdirAll(parentDir, 0755); err != nil {
		s.logger.Error("Failed to create parent directories",
			zap.String("path", parentDir),
			zap.Error(err))
		return fmt.Errorf("failed to create directories: %w", err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		s.logger.Error("Failed to write document",
			zap.String("key", key),
			zap.Error(err))
		return fmt.Errorf("failed to write document: %w", err)
	}

	s.logger.Debug("Document saved",
		zap.String("key", key),
		zap.Int("size", len(content)))
	return nil
}

// Read returns the content stored under key
func (s *LocalFileStorage) Read(ctx context.Context, key string) ([]byte, error) {
	fullPath := s.GetFullPath(key)
	if err := s.validatePath(fullPath); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("document %s: %w", key, os.ErrNotExist)
		}
		s.logger.Error("Failed to read document",
			zap.String("key", key),
			zap.Error(err))
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return content, nil
}

// Exists reports whether a document is stored under key
func (s *LocalFileStorage) Exists(ctx context.Context, key string) bool {
	fullPath := s.GetFullPath(key)
	if s.validatePath(fullPath) != nil {
		return false
	}
	info, err := os.Stat(fullPath)
	return err == nil && !info.IsDir()
}

// Delete removes the document; a missing document is not an error
func (s *LocalFileStorage) Delete(ctx context.Context, key string) error {
	fullPath := s.GetFullPath(key)
	if err := s.validatePath(fullPath); err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Error("Failed to delete document",
			zap.String("key", key),
			zap.Error(err))
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// GetFullPath maps a key to its file path. Each key segment is reduced to
// filesystem-safe characters.
func (s *LocalFileStorage) GetFullPath(key string) string {
	parts := []string{s.baseDir}
	for _, seg := range strings.Split(filepath.ToSlash(key), "/") {
		if seg = SanitizeName(seg); seg != "" {
			parts = append(parts, seg)
		}
	}
	return filepath.Join(parts...)
}

// SanitizeName returns a filesystem-safe version of one path segment
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "\\", "")
	return unsafeChars.ReplaceAllString(name, "_")
}

// validatePath checks that the path stays within baseDir
func (s *LocalFileStorage) validatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return fmt.Errorf("path escapes base directory: %s", fullPath)
	}
	return nil
}

// Verify interface compliance
var _ port.FileStorage = (*LocalFileStorage)(nil)
