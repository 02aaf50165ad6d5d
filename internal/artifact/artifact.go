package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// File is the append-only run artifact. Its name is fixed from the process
// start time; every flush of the run appends to the same path and the file is
// never truncated or renamed while the run lasts. The extension is .txt
// because the content is an unstructured text blob.
type File struct {
	path string
}

// New derives the artifact path under dir from the run start time, using the
// MM-DD-YYYY-HH-MM naming convention. The file itself is created lazily on
// first append.
func New(dir string, start time.Time) *File {
	return &File{path: filepath.Join(dir, start.Format("01-02-2006-15-04")+".txt")}
}

// AtPath wraps an explicit path, bypassing the timestamp naming.
func AtPath(path string) *File {
	return &File{path: path}
}

// Path returns the artifact location.
func (f *File) Path() string {
	return f.path
}

// Append writes text to the end of the artifact inside a scoped handle: the
// file is opened, written, and closed within this call, so the write either
// completes durably or fails visibly before the handle is released.
func (f *File) Append(text string) error {
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	fh, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	if _, err := fh.WriteString(text); err != nil {
		fh.Close()
		return fmt.Errorf("append artifact: %w", err)
	}
	return fh.Close()
}
