package espi

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// saveTimestampLayout names files written by Save when no name is given.
const saveTimestampLayout = "2006-01-02_15-04-05"

// Save writes a received payload verbatim to dir and returns the written
// path. An empty name selects a timestamped filename. The directory is
// created if missing.
func Save(dir, name string, data []byte) (string, error) {
	if name == "" {
		name = time.Now().Format(saveTimestampLayout)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create save directory: %w", err)
	}

	path := filepath.Join(dir, name+".xml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write payload: %w", err)
	}

	return path, nil
}
