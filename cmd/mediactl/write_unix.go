//go:build !windows

package main

import (
	"fmt"

	"github.com/google/renameio/v2"
)

// writeFileAtomic syncs data to a pending file before renaming it over path.
func writeFileAtomic(path string, data []byte) error {
	pending, err := renameio.NewPendingFile(path, renameio.WithExistingPermissions(), renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending items file: %w", err)
	}
	defer pending.Cleanup()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("write items data: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace items file: %w", err)
	}
	return nil
}
