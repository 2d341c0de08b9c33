// Package storage holds uploaded assets: doctor photos, testimonial images
// and patient result files.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("asset not found")

// Asset describes a stored object.
type Asset struct {
	Key         string `json:"publicId" bson:"publicId"`
	URL         string `json:"url" bson:"url"`
	ContentType string `json:"mimeType" bson:"mimeType"`
	Size        int64  `json:"size" bson:"size"`
}

// Object is an open asset stream. Callers must close Body.
type Object struct {
	Body         io.ReadCloser
	ContentType  string
	Size         int64
	LastModified time.Time
}

type Store interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (*Asset, error)
	Open(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
}

// NewKey builds "<folder>/<uuid><ext>" from the original file name.
func NewKey(folder, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if len(ext) > 10 {
		ext = ""
	}
	return fmt.Sprintf("%s/%s%s", strings.Trim(folder, "/"), uuid.NewString(), ext)
}

// CleanKey rejects keys that would escape the store root.
func CleanKey(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	cleaned := path.Clean(key)
	if key == "" || cleaned == "." || strings.HasPrefix(cleaned, "..") || cleaned != key {
		return "", fmt.Errorf("invalid asset key %q", key)
	}
	return cleaned, nil
}

// Upload is a file received from a client, before it is stored.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Put stores up under a fresh key in folder.
func Put(ctx context.Context, s Store, folder string, up Upload) (*Asset, error) {
	contentType := up.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return s.Upload(ctx, NewKey(folder, up.FileName), contentType, up.Body, up.Size)
}
