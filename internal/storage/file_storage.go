package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ErrPathEscapesBase is returned for paths outside the storage directory
var ErrPathEscapesBase = errors.New("path escapes base directory")

// FileStorage publishes finished files into a directory
type FileStorage interface {
	// Publish moves src into the storage directory under name.
	// Readers never observe a partially written file.
	Publish(src, name string) (string, error)

	// ValidatePath checks path security (no traversal, within base)
	ValidatePath(fullPath string) error
}

// LocalFileStorage implements FileStorage for the local filesystem
type LocalFileStorage struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalFileStorage creates a new LocalFileStorage
func NewLocalFileStorage(baseDir string, logger *zap.Logger) *LocalFileStorage {
	return &LocalFileStorage{
		baseDir: baseDir,
		logger:  logger,
	}
}

// BaseDir returns the directory files are published into
func (s *LocalFileStorage) BaseDir() string {
	return s.baseDir
}

// Publish renames src into the base directory. When src lives on another
// filesystem it is first copied next to the destination and then renamed.
func (s *LocalFileStorage) Publish(src, name string) (string, error) {
	dst := filepath.Join(s.baseDir, filepath.Base(name))
	if err := s.ValidatePath(dst); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		s.logger.Error("Failed to create output directory",
			zap.String("path", s.baseDir),
			zap.Error(err))
		return "", fmt.Errorf("failed to create directories: %w", err)
	}

	if err := os.Rename(src, dst); err == nil {
		s.logger.Debug("File published", zap.String("src", src), zap.String("path", dst))
		return dst, nil
	}

	tmp, err := s.copyToTemp(src)
	if err != nil {
		return "", err
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		s.logger.Error("Failed to publish file",
			zap.String("path", dst),
			zap.Error(err))
		return "", fmt.Errorf("failed to publish file: %w", err)
	}
	_ = os.Remove(src)

	s.logger.Debug("File published by copy", zap.String("src", src), zap.String("path", dst))
	return dst, nil
}

func (s *LocalFileStorage) copyToTemp(src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer in.Close()

	out, err := os.CreateTemp(s.baseDir, ".publish-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(out.Name())
		return "", fmt.Errorf("failed to copy file: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(out.Name())
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	return out.Name(), nil
}

// ValidatePath checks that the path is within baseDir
func (s *LocalFileStorage) ValidatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) && absPath != absBase {
		return fmt.Errorf("%w: %s", ErrPathEscapesBase, fullPath)
	}

	return nil
}
