// Package storage keeps uploaded item images and hands back the reference
// stored on the item.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxImageBytes is the upload limit for a single image.
const MaxImageBytes = 5 << 20

var (
	ErrTooLarge   = errors.New("image exceeds size limit")
	ErrNotImage   = errors.New("upload is not an image")
	ErrUnknownRef = errors.New("image reference not owned by this store")
)

// Upload is an image received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ImageStore keeps item images.
type ImageStore interface {
	// Save stores the image and returns the reference to keep on the item.
	Save(ctx context.Context, upload Upload) (string, error)
	// Delete removes a previously saved image. Missing images are not an error.
	Delete(ctx context.Context, ref string) error
}

// Validate checks the size limit and that the upload declares an image type.
func Validate(upload Upload, maxBytes int64) error {
	if maxBytes > 0 && upload.Size > maxBytes {
		return ErrTooLarge
	}
	if !strings.HasPrefix(strings.ToLower(upload.ContentType), "image/") {
		return ErrNotImage
	}
	return nil
}

// objectName returns a random file name keeping the upload's extension.
func objectName(filename string) string {
	return uuid.NewString() + strings.ToLower(filepath.Ext(filename))
}

// trimRef strips prefix from ref and rejects anything that is not a plain
// object name under it.
func trimRef(ref, prefix string) (string, error) {
	name, ok := strings.CutPrefix(ref, strings.TrimSuffix(prefix, "/")+"/")
	if !ok || name == "" || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: %q", ErrUnknownRef, ref)
	}
	return name, nil
}
