// Package scaffold owns the default server entry written into the output
// directory when the server build did not produce one.
package scaffold

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed templates/index.js
var entryTemplate []byte

// Template returns a copy of the fallback entry file content: an Express app
// with JSON body parsing, static files from dist/public, GET /api/health and a
// catch-all route serving dist/public/index.html.
func Template() []byte {
	out := make([]byte, len(entryTemplate))
	copy(out, entryTemplate)
	return out
}

// EnsureEntry writes the fallback template to dir/name unless something already
// exists at that path. The create is exclusive, so a file that appears between
// the check and the write is never clobbered. It reports whether it wrote the file.
func EnsureEntry(dir, name string) (bool, error) {
	path := filepath.Join(dir, name)

	// #nosec G302 G304 -- the entry must be world-readable for the hosting runtime
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create entry file %s: %w", path, err)
	}

	if _, err := f.Write(entryTemplate); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return false, fmt.Errorf("write entry file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return false, fmt.Errorf("close entry file %s: %w", path, err)
	}
	return true, nil
}

// Exists reports whether an entry file is present at dir/name.
func Exists(dir, name string) bool {
	_, err := os.Lstat(filepath.Join(dir, name))
	return err == nil
}
