package storage

import (
	"context"
	"errors"
	"mime/multipart"
)

// ErrUnsupportedFile is returned when an upload is not a jpeg/jpg/png image.
var ErrUnsupportedFile = errors.New("unsupported file type")

// Object describes a stored upload.
type Object struct {
	Name         string
	OriginalName string
	Size         int64
	ContentType  string
}

// Service persists uploaded car images and resolves them to serveable URLs.
type Service interface {
	Save(ctx context.Context, file *multipart.FileHeader) (*Object, error)
	Remove(ctx context.Context, name string) error
	// URL resolves a stored object name to a URL reachable by clients.
	// baseURL is the request's scheme+host, used by backends that serve
	// files from this process.
	URL(ctx context.Context, name, baseURL string) (string, error)
	// StaticDir returns the local directory to mount under the public
	// uploads path, or "" when objects are served remotely.
	StaticDir() string
}
