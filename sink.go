package screencap

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// FileSink writes captures into one directory of an afero filesystem.
type FileSink struct {
	fs  afero.Fs
	dir string
}

// NewFileSink creates dir if it does not exist yet. The directory is created
// once here, not on every capture.
func NewFileSink(fs afero.Fs, dir string) (*FileSink, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if dir == "" {
		dir = "."
	}
	exists, err := afero.DirExists(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to check screenshot directory %s: %w", dir, err)
	}
	if !exists {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create screenshot directory %s: %w", dir, err)
		}
	}
	return &FileSink{fs: fs, dir: dir}, nil
}

// Dir returns the output directory.
func (s *FileSink) Dir() string {
	return s.dir
}

// Path returns where filename is written.
func (s *FileSink) Path(filename string) string {
	return filepath.Join(s.dir, filename)
}

// Write stores data under filename. An existing file of the same name is
// replaced.
func (s *FileSink) Write(filename string, data []byte) error {
	if filename == "" || filepath.Base(filename) != filename {
		return fmt.Errorf("invalid screenshot filename %q", filename)
	}
	if err := afero.WriteFile(s.fs, s.Path(filename), data, os.FileMode(0o644)); err != nil {
		return fmt.Errorf("failed to write screenshot %s: %w", filename, err)
	}
	return nil
}
