package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/rental-billing/internal/application/port"
)

// DefaultURLPrefix is where the HTTP server serves stored evidence
const DefaultURLPrefix = "/api/evidence/"

// LocalFileStorage implements port.FileStorage for local filesystem
type LocalFileStorage struct {
	baseDir   string
	urlPrefix string
	logger    *zap.Logger
}

// NewLocalFileStorage creates a new LocalFileStorage serving keys under urlPrefix
func NewLocalFileStorage(baseDir, urlPrefix string, logger *zap.Logger) port.FileStorage {
	if urlPrefix == "" {
		urlPrefix = DefaultURLPrefix
	}
	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}
	return &LocalFileStorage{
		baseDir:   baseDir,
		urlPrefix: urlPrefix,
		logger:    logger,
	}
}

// Save writes content under key, creating parent directories
func (s *LocalFileStorage) Save(ctx context.Context, key string, content []byte) error {
	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}

	parentDir := filepath.Dir(fullPath)
	if err := os.MkdirAll(parentDir, 0755); err != nil {
		s.logger.Error("Failed to create parent directories",
			zap.String("path", parentDir),
			zap.Error(err))
		return fmt.Errorf("failed to create directories: %w", err)
	}

	// Write to a temp file first so readers never see a partial upload
	tmp, err := os.CreateTemp(parentDir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		s.logger.Error("Failed to write file",
			zap.String("path", fullPath),
			zap.Error(err))
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to move file into place: %w", err)
	}

	s.logger.Debug("File saved successfully",
		zap.String("key", key),
		zap.Int("size", len(content)))

	return nil
}

// Read reads the content stored under key
func (s *LocalFileStorage) Read(ctx context.Context, key string) ([]byte, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		s.logger.Error("Failed to read file",
			zap.String("path", fullPath),
			zap.Error(err))
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return content, nil
}

// Exists checks if a regular file is stored under key
func (s *LocalFileStorage) Exists(ctx context.Context, key string) bool {
	fullPath, err := s.resolve(key)
	if err != nil {
		return false
	}
	info, err := os.Stat(fullPath)
	return err == nil && info.Mode().IsRegular()
}

// Delete removes the file stored under key. Missing files are not an error.
func (s *LocalFileStorage) Delete(ctx context.Context, key string) error {
	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		s.logger.Error("Failed to delete file",
			zap.String("path", fullPath),
			zap.Error(err))
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

// URL returns the public address of key
func (s *LocalFileStorage) URL(key string) string {
	return s.urlPrefix + strings.TrimPrefix(path.Clean("/"+key), "/")
}

// KeyFromURL reverses URL; ok is false for URLs outside the prefix
func (s *LocalFileStorage) KeyFromURL(url string) (string, bool) {
	if !strings.HasPrefix(url, s.urlPrefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, s.urlPrefix)
	if key == "" {
		return "", false
	}
	return key, true
}

// resolve maps key to a path inside baseDir
func (s *LocalFileStorage) resolve(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("empty storage key")
	}
	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if err := s.validatePath(fullPath); err != nil {
		return "", err
	}
	return fullPath, nil
}

// validatePath checks that the path is safe and within baseDir
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
