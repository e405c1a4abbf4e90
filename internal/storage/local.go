package storage

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PublicPrefix is the URL path under which local uploads are served.
const PublicPrefix = "/uploads"

var allowedImageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// LocalService writes uploads to a directory on local disk. File names are
// timestamp-prefixed and uniqued, so concurrent requests never collide.
type LocalService struct {
	dir string
}

func NewLocalService(dir string) (*LocalService, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("upload directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalService{dir: dir}, nil
}

func (s *LocalService) Save(ctx context.Context, file *multipart.FileHeader) (*Object, error) {
	contentType, err := validateImage(file)
	if err != nil {
		return nil, err
	}

	name := storedName(file.Filename)

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", file.Filename, err)
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("create file %s: %w", name, err)
	}

	size, err := io.Copy(dst, src)
	closeErr := dst.Close()
	if err != nil {
		return nil, fmt.Errorf("write file %s: %w", name, err)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("close file %s: %w", name, closeErr)
	}

	return &Object{
		Name:         name,
		OriginalName: file.Filename,
		Size:         size,
		ContentType:  contentType,
	}, nil
}

func (s *LocalService) Remove(ctx context.Context, name string) error {
	clean := filepath.Base(name)
	if clean == "" || clean == "." {
		return fmt.Errorf("invalid object name %q", name)
	}
	if err := os.Remove(filepath.Join(s.dir, clean)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove file %s: %w", clean, err)
	}
	return nil
}

func (s *LocalService) URL(ctx context.Context, name, baseURL string) (string, error) {
	return strings.TrimSuffix(baseURL, "/") + path.Join(PublicPrefix, name), nil
}

func (s *LocalService) StaticDir() string {
	return s.dir
}

var _ Service = (*LocalService)(nil)

// storedName builds a unique on-disk name keeping the original extension.
func storedName(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	return fmt.Sprintf("%d-%s%s", time.Now().UnixNano(), uuid.NewString(), ext)
}

// validateImage checks the extension and sniffs the leading bytes, rejecting
// anything that is not a jpeg or png.
func validateImage(file *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(file.Filename))
	want, ok := allowedImageTypes[ext]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFile, file.Filename)
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open upload %s: %w", file.Filename, err)
	}
	defer src.Close()

	head := make([]byte, 512)
	n, err := src.Read(head)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read upload %s: %w", file.Filename, err)
	}

	detected := http.DetectContentType(head[:n])
	if detected != want {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFile, file.Filename)
	}
	return detected, nil
}
