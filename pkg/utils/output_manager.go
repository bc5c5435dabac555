package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// OutputManager lays out run outputs as <base>/<run-id>/<file>.
type OutputManager struct {
	BaseOutputDir string
}

// NewOutputManager creates a new output manager
func NewOutputManager(baseOutputDir string) *OutputManager {
	return &OutputManager{
		BaseOutputDir: baseOutputDir,
	}
}

// NewRunID returns a fresh identifier for a run's output directory.
func (om *OutputManager) NewRunID() string {
	return uuid.NewString()
}

// CreateRunOutputDir creates the directory holding a run's outputs.
func (om *OutputManager) CreateRunOutputDir(runID string) (string, error) {
	if runID == "" || filepath.Base(runID) != runID {
		return "", fmt.Errorf("invalid run id %q", runID)
	}
	runDir := filepath.Join(om.BaseOutputDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create run output directory: %w", err)
	}
	return runDir, nil
}

// GetOutputFilePath returns the full path of a file inside a run's directory,
// creating the directory if needed.
func (om *OutputManager) GetOutputFilePath(runID, fileName string) (string, error) {
	runDir, err := om.CreateRunOutputDir(runID)
	if err != nil {
		return "", err
	}

	// Clean the filename to remove any path separators
	cleanFileName := filepath.Base(fileName)

	return filepath.Join(runDir, cleanFileName), nil
}

// GetFileType determines the file type based on extension
func (om *OutputManager) GetFileType(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		return "csv"
	case ".json":
		return "json"
	default:
		return "unknown"
	}
}

// GetFileSize returns the size of a file in bytes
func (om *OutputManager) GetFileSize(filePath string) (int64, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return 0, err
	}
	return fileInfo.Size(), nil
}
