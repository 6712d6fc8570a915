// Package storage persists uploaded product images.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flicky/luxbag-api/internal/apperror"
	"github.com/flicky/luxbag-api/internal/model"
)

const (
	MaxImageBytes = 5 << 20
	MaxImages     = 5
)

var allowedExtensions = map[string]bool{
	".jpeg": true, ".jpg": true, ".png": true, ".gif": true, ".webp": true,
}

var (
	ErrUnsupportedType = apperror.New(apperror.InvalidArgument, "Only image files are allowed (jpeg, jpg, png, gif, webp)")
	ErrTooLarge        = apperror.New(apperror.InvalidArgument, "Image exceeds the 5MB size limit")
	ErrTooMany         = apperror.New(apperror.InvalidArgument, "At most 5 images can be uploaded")
)

// Upload is one incoming image file.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

type ImageStore interface {
	Save(ctx context.Context, upload Upload) (model.Image, error)
	Delete(ctx context.Context, publicID string) error
}

// Validate checks count, extension, content type and size before anything is
// written.
func Validate(uploads []Upload) error {
	if len(uploads) > MaxImages {
		return ErrTooMany
	}
	for _, u := range uploads {
		ext := strings.ToLower(filepath.Ext(u.Filename))
		if !allowedExtensions[ext] {
			return ErrUnsupportedType
		}
		if u.ContentType != "" && !allowedExtensions["."+strings.TrimPrefix(u.ContentType, "image/")] {
			return ErrUnsupportedType
		}
		if u.Size > MaxImageBytes {
			return ErrTooLarge
		}
	}
	return nil
}

// DiskStore writes images under Dir and exposes them below PublicURL.
type DiskStore struct {
	dir       string
	publicURL string
}

func NewDiskStore(dir, publicURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{dir: dir, publicURL: strings.TrimSuffix(publicURL, "/")}, nil
}

func (s *DiskStore) Dir() string { return s.dir }

func (s *DiskStore) Save(ctx context.Context, upload Upload) (model.Image, error) {
	if err := ctx.Err(); err != nil {
		return model.Image{}, err
	}
	ext := strings.ToLower(filepath.Ext(upload.Filename))
	publicID := fmt.Sprintf("images-%d-%s%s", time.Now().UnixMilli(), uuid.NewString()[:8], ext)

	src, err := upload.Open()
	if err != nil {
		return model.Image{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(filepath.Join(s.dir, publicID), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return model.Image{}, fmt.Errorf("create image file: %w", err)
	}
	n, err := io.Copy(dst, io.LimitReader(src, MaxImageBytes+1))
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > MaxImageBytes {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(filepath.Join(s.dir, publicID))
		if errors.Is(err, ErrTooLarge) {
			return model.Image{}, err
		}
		return model.Image{}, fmt.Errorf("write image file: %w", err)
	}

	return model.Image{URL: path.Join(s.publicURL, publicID), PublicID: publicID}, nil
}

// Delete removes a stored image. Missing files are not an error.
func (s *DiskStore) Delete(_ context.Context, publicID string) error {
	name := filepath.Base(publicID)
	if name == "." || name == string(filepath.Separator) {
		return nil
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete image: %w", err)
	}
	return nil
}
