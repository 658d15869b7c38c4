// Package storage hands manuscript PDFs to object storage. The database only
// keeps the returned key and URL.
package storage

import (
	"context"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	ErrNotFound           = errors.New("object not found")
	ErrPresignUnsupported = errors.New("store cannot presign urls")
)

// Object describes a stored file.
type Object struct {
	Key  string
	URL  string
	Size int64
}

// FileStore is implemented by S3Store and MemoryStore.
type FileStore interface {
	Put(ctx context.Context, folder, filename, contentType string, data []byte) (Object, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// NewKey builds "<folder>/<yyyy>/<mm>/<uuid><ext>".
func NewKey(folder, filename string, now time.Time) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".pdf"
	}
	folder = strings.Trim(folder, "/")
	return path.Join(folder, now.Format("2006"), now.Format("01"), uuid.NewString()+ext)
}
