package upload

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gulitdev/gulit-api/random"
)

// Store saves uploaded images on local disk under Dir. Files are written to
// a temporary name and renamed into place, so a failed write never clobbers
// or orphans an existing file.
type Store struct {
	Dir     string
	MaxSize int64
}

func NewStore(dir string, maxSize int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	return &Store{Dir: dir, MaxSize: maxSize}, nil
}

var allowedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// Save persists the file under a random name and returns the path relative
// to the store root.
func (s *Store) Save(fh *multipart.FileHeader) (string, error) {
	if fh.Size > s.MaxSize {
		return "", fmt.Errorf("file of %d bytes exceeds the %d byte limit", fh.Size, s.MaxSize)
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedExt[ext] {
		return "", fmt.Errorf("file extension %q is not an allowed image type", ext)
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("opening uploaded file: %w", err)
	}
	defer src.Close()

	name := random.Filename(24) + ext

	tmp, err := os.CreateTemp(s.Dir, "upload-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("writing uploaded file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("closing uploaded file: %w", err)
	}

	dst := filepath.Join(s.Dir, name)
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("placing uploaded file: %w", err)
	}

	return name, nil
}

// Remove deletes a previously saved file. Missing files are not an error.
func (s *Store) Remove(name string) error {
	// Refuse anything that escapes the store root.
	if name != filepath.Base(name) {
		return fmt.Errorf("invalid file name %q", name)
	}

	err := os.Remove(filepath.Join(s.Dir, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing file %q: %w", name, err)
	}

	return nil
}
