package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DiskURLPrefix is the path the uploads directory is served under.
const DiskURLPrefix = "/uploads"

// DiskStore writes images into a local directory.
type DiskStore struct {
	dir string
}

// NewDiskStore creates dir if needed and stores images in it.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating uploads dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Dir is the directory served under DiskURLPrefix.
func (s *DiskStore) Dir() string {
	return s.dir
}

func (s *DiskStore) Save(_ context.Context, upload Upload) (string, error) {
	name := objectName(upload.Filename)
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating image file: %w", err)
	}

	if _, err := io.Copy(f, upload.Body); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("writing image file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("closing image file: %w", err)
	}

	return DiskURLPrefix + "/" + name, nil
}

func (s *DiskStore) Delete(_ context.Context, ref string) error {
	name, err := trimRef(ref, DiskURLPrefix)
	if err != nil {
		return err
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrUnknownRef, ref)
	}

	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing image file: %w", err)
	}
	return nil
}
