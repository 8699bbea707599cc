package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// OpenDebugFile opens path for appending, creating it and its directory if
// needed. The returned writer sends everything to both console and the file.
func OpenDebugFile(path string, console io.Writer) (io.Writer, *os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("logger: mkdir %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: open debug file: %w", err)
	}
	return io.MultiWriter(console, f), f, nil
}
