// Package media integrates the external blob store: bytes plus a content
// type go in, a public URL comes out. Content rows only ever hold these
// URLs.
package media

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

var ErrUnsupportedType = errors.New("unsupported content type")

// Uploader stores a binary object and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
}

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"video/mp4":  ".mp4",
	"video/webm": ".webm",
}

// GCSUploader writes objects into one public bucket and returns
// storage.googleapis.com URLs.
type GCSUploader struct {
	client *storage.Client
	bucket string
}

func NewGCSUploader(ctx context.Context, bucket string) (*GCSUploader, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("media bucket name is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSUploader{client: client, bucket: bucket}, nil
}

func (u *GCSUploader) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	key, err := objectKey(contentType)
	if err != nil {
		return "", err
	}

	w := u.client.Bucket(u.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize object: %w", err)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", u.bucket, key), nil
}

func objectKey(contentType string) (string, error) {
	base, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}
	ext, ok := allowedTypes[base]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, base)
	}
	prefix := "images"
	if strings.HasPrefix(base, "video/") {
		prefix = "videos"
	}
	return prefix + "/" + uuid.NewString() + ext, nil
}
