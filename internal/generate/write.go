// SPDX-License-Identifier: MPL-2.0

package generate

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/modlink/modlink/pkg/types"
)

// WriteFile writes content to target, creating parent directories. A file
// that already holds exactly content is left untouched. It reports whether
// it wrote.
func WriteFile(target types.FilesystemPath, content []byte) (bool, error) {
	path := string(target)
	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, content) {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, nil
}
