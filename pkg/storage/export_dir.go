package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExportDir writes downloaded report files under a base directory.
type ExportDir struct {
	baseDir string
}

// NewExportDir ensures the base directory exists and returns a handle.
func NewExportDir(baseDir string) (*ExportDir, error) {
	if baseDir == "" {
		baseDir = "./exports"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create exports directory: %w", err)
	}
	return &ExportDir{baseDir: baseDir}, nil
}

// Save writes data to filename inside the base dir and returns the full path.
// Names that would escape the base dir are rejected.
func (d *ExportDir) Save(filename string, data []byte) (string, error) {
	path, err := d.resolve(filename)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}
	return path, nil
}

func (d *ExportDir) resolve(filename string) (string, error) {
	clean := filepath.Clean(filename)
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid export filename %q", filename)
	}
	if filepath.Dir(clean) != "." {
		return "", fmt.Errorf("export filename %q must not contain directories", filename)
	}
	return filepath.Join(d.baseDir, clean), nil
}
