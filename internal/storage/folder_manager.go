package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var unsafeFolderChars = regexp.MustCompile(`[^a-zA-Z0-9\-_]`)

// FolderManager manages the isolated working folder of each report run
type FolderManager struct {
	baseDir string
	logger  *zap.Logger
}

// NewFolderManager creates a new FolderManager
func NewFolderManager(baseDir string, logger *zap.Logger) *FolderManager {
	return &FolderManager{
		baseDir: baseDir,
		logger:  logger,
	}
}

// CreateRunFolder creates {baseDir}/{runID}/ and returns its path.
// An existing folder is reused.
func (m *FolderManager) CreateRunFolder(runID string) (string, error) {
	safeName := m.SanitizeFolderName(runID)
	if safeName == "" {
		return "", fmt.Errorf("cannot create folder: empty run ID")
	}

	folderPath := filepath.Join(m.baseDir, safeName)
	if err := os.MkdirAll(folderPath, 0755); err != nil {
		m.logger.Error("Failed to create run folder",
			zap.String("run_id", runID),
			zap.String("folder_path", folderPath),
			zap.Error(err))
		return "", fmt.Errorf("failed to create folder: %w", err)
	}

	m.logger.Debug("Created run folder",
		zap.String("run_id", runID),
		zap.String("folder_path", folderPath))

	return folderPath, nil
}

// RunFolderPath returns the folder of a run without creating it
func (m *FolderManager) RunFolderPath(runID string) string {
	return filepath.Join(m.baseDir, m.SanitizeFolderName(runID))
}

// RunFolderExists reports whether the folder of a run is present
func (m *FolderManager) RunFolderExists(runID string) bool {
	info, err := os.Stat(m.RunFolderPath(runID))
	return err == nil && info.IsDir()
}

// DeleteRunFolder removes the folder of a run and everything in it
func (m *FolderManager) DeleteRunFolder(runID string) error {
	safeName := m.SanitizeFolderName(runID)
	if safeName == "" {
		return fmt.Errorf("cannot delete folder: empty run ID")
	}

	folderPath := filepath.Join(m.baseDir, safeName)
	if err := os.RemoveAll(folderPath); err != nil {
		m.logger.Error("Failed to delete run folder",
			zap.String("run_id", runID),
			zap.String("folder_path", folderPath),
			zap.Error(err))
		return fmt.Errorf("failed to delete folder: %w", err)
	}

	m.logger.Debug("Deleted run folder",
		zap.String("run_id", runID),
		zap.String("folder_path", folderPath))

	return nil
}

// SanitizeFolderName keeps letters, digits, hyphens and underscores only
func (m *FolderManager) SanitizeFolderName(name string) string {
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, "/", "")
	name = strings.ReplaceAll(name, "\\", "")
	return unsafeFolderChars.ReplaceAllString(name, "")
}
