//go:build windows

package main

import (
	"fmt"
	"os"
	"path/filepath"
)

// writeFileAtomic writes through a synced temp file and renames it over path.
// Rename is best effort atomic on Windows.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".items-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp items file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write items data: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp items file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp items file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename items file: %w", err)
	}
	return nil
}
