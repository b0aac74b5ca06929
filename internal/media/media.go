// Package media uploads images to a hosting backend and returns public URLs.
package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/hushmap/hushmap/internal/models"
	"github.com/hushmap/hushmap/pkg/config"
)

var (
	// ErrNotConfigured is returned when no image backend is configured
	ErrNotConfigured = errors.New("image hosting is not configured")
	// ErrUnsupportedType is returned for content types outside the allow-list
	ErrUnsupportedType = errors.New("unsupported image type")
	// ErrTooLarge is returned for uploads above the size cap
	ErrTooLarge = errors.New("image too large")
	// ErrForeignURL is returned when deleting a URL this store did not issue
	ErrForeignURL = errors.New("url does not belong to this store")
)

// Store hosts images
type Store interface {
	// Upload stores data under destinationHint (e.g. "secrets", "stories",
	// "avatars") and returns its public URL.
	Upload(ctx context.Context, data []byte, contentType, destinationHint string) (string, error)
	// Delete removes a previously uploaded image. Callers treat failures as best effort.
	Delete(ctx context.Context, url string) error
}

// New selects the backend named in cfg. Clients are created on first use.
func New(cfg *config.MediaConfig) Store {
	var backend Store
	switch cfg.Backend {
	case "s3":
		backend = NewS3Store(cfg)
	case "cloudinary":
		backend = NewCloudinaryStore(cfg)
	default:
		return disabled{}
	}
	return &checked{Store: backend, maxSize: cfg.MaxSize, allowed: cfg.AllowedTypes}
}

type disabled struct{}

func (disabled) Upload(context.Context, []byte, string, string) (string, error) {
	return "", ErrNotConfigured
}

func (disabled) Delete(context.Context, string) error { return nil }

// checked enforces the size cap and type allow-list before any network call
type checked struct {
	Store
	maxSize int64
	allowed []string
}

func (c *checked) Upload(ctx context.Context, data []byte, contentType, hint string) (string, error) {
	ct, err := CheckUpload(data, contentType, c.maxSize, c.allowed)
	if err != nil {
		return "", err
	}
	return c.Store.Upload(ctx, data, ct, hint)
}

// CheckUpload validates an upload and returns its effective content type.
// An empty contentType is sniffed from the data.
func CheckUpload(data []byte, contentType string, maxSize int64, allowed []string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty upload", ErrUnsupportedType)
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, len(data), maxSize)
	}

	ct := strings.ToLower(strings.TrimSpace(contentType))
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(data)
	}
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}

	for _, a := range allowed {
		if strings.EqualFold(a, ct) {
			return ct, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedType, ct)
}

// objectKey builds "<hint>/<ulid>.<ext>"
func objectKey(hint, contentType string) string {
	hint = strings.Trim(path.Clean("/"+hint), "/")
	if hint == "" || hint == "." {
		hint = "misc"
	}
	return hint + "/" + models.NewID() + extension(contentType)
}

func extension(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	return ""
}
