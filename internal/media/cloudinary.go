package media

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/hushmap/hushmap/internal/metrics"
	"github.com/hushmap/hushmap/internal/models"
	"github.com/hushmap/hushmap/pkg/config"
)

// CloudinaryStore hosts images on Cloudinary
type CloudinaryStore struct {
	url    string
	folder string

	once    sync.Once
	cld     *cloudinary.Cloudinary
	initErr error
}

// NewCloudinaryStore creates a store; the SDK client is built on first use
func NewCloudinaryStore(cfg *config.MediaConfig) *CloudinaryStore {
	return &CloudinaryStore{url: cfg.CloudinaryURL, folder: strings.Trim(cfg.CloudinaryFolder, "/")}
}

func (c *CloudinaryStore) init() (*cloudinary.Cloudinary, error) {
	c.once.Do(func() {
		cld, err := cloudinary.NewFromURL(c.url)
		if err != nil {
			c.initErr = fmt.Errorf("cloudinary configuration error: %w", err)
			return
		}
		cld.Config.URL.Secure = true
		c.cld = cld
	})
	return c.cld, c.initErr
}

func (c *CloudinaryStore) Upload(ctx context.Context, data []byte, contentType, hint string) (string, error) {
	cld, err := c.init()
	if err != nil {
		metrics.Get().MediaUploadTotal.WithLabelValues("cloudinary", "error").Inc()
		return "", err
	}

	folder := strings.Trim(path.Join(c.folder, hint), "/")
	res, err := cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		Folder:         folder,
		PublicID:       models.NewID(),
		Transformation: "c_limit,w_1600,h_1600,q_auto",
	})
	if err == nil && res.Error.Message != "" {
		err = fmt.Errorf("%s", res.Error.Message)
	}
	metrics.Get().MediaUploadTotal.WithLabelValues("cloudinary", metrics.Status(err)).Inc()
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	return res.SecureURL, nil
}

func (c *CloudinaryStore) Delete(ctx context.Context, url string) error {
	publicID, err := publicIDFromURL(url)
	if err != nil {
		return err
	}
	cld, err := c.init()
	if err != nil {
		return err
	}
	res, err := cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("cloudinary destroy: %s", res.Error.Message)
	}
	return nil
}

// publicIDFromURL extracts "folder/name" from
// https://res.cloudinary.com/<cloud>/image/upload/[<transform>/][v<version>/]folder/name.ext
func publicIDFromURL(url string) (string, error) {
	_, rest, ok := strings.Cut(url, "/upload/")
	if !ok || rest == "" {
		return "", fmt.Errorf("%w: %s", ErrForeignURL, url)
	}

	parts := strings.Split(rest, "/")
	for i, p := range parts {
		if len(p) > 1 && p[0] == 'v' && isDigits(p[1:]) {
			parts = parts[i+1:]
			break
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: %s", ErrForeignURL, url)
	}

	id := strings.Join(parts, "/")
	id = strings.TrimSuffix(id, path.Ext(id))
	if id == "" {
		return "", fmt.Errorf("%w: %s", ErrForeignURL, url)
	}
	return id, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
