package storage

import (
	"bytes"
	"context"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	pngHeader  = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}
	jpegHeader = []byte{0xff, 0xd8, 0xff, 0xe0}
)

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(&buf, writer.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })

	files := form.File["file"]
	require.Len(t, files, 1)
	return files[0]
}

func TestLocalSaveAndRemove(t *testing.T) {
	dir := t.TempDir()
	svc, err := NewLocalService(dir)
	require.NoError(t, err)
	ctx := context.Background()

	obj, err := svc.Save(ctx, fileHeader(t, "front.png", pngHeader))
	require.NoError(t, err)
	require.Equal(t, "front.png", obj.OriginalName)
	require.Equal(t, "image/png", obj.ContentType)
	require.Equal(t, int64(len(pngHeader)), obj.Size)
	require.True(t, strings.HasSuffix(obj.Name, ".png"))

	stored, err := os.ReadFile(filepath.Join(dir, obj.Name))
	require.NoError(t, err)
	require.Equal(t, pngHeader, stored)

	require.NoError(t, svc.Remove(ctx, obj.Name))
	_, err = os.Stat(filepath.Join(dir, obj.Name))
	require.True(t, os.IsNotExist(err))

	// removing twice is not an error
	require.NoError(t, svc.Remove(ctx, obj.Name))
}

func TestLocalSaveAcceptsJpeg(t *testing.T) {
	svc, err := NewLocalService(t.TempDir())
	require.NoError(t, err)

	obj, err := svc.Save(context.Background(), fileHeader(t, "side.jpg", jpegHeader))
	require.NoError(t, err)
	require.Equal(t, "image/jpeg", obj.ContentType)
}

func TestLocalSaveRejectsNonImages(t *testing.T) {
	svc, err := NewLocalService(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	// wrong extension
	_, err = svc.Save(ctx, fileHeader(t, "notes.txt", []byte("plain text")))
	require.ErrorIs(t, err, ErrUnsupportedFile)

	// right extension, wrong content
	_, err = svc.Save(ctx, fileHeader(t, "fake.png", []byte("plain text")))
	require.ErrorIs(t, err, ErrUnsupportedFile)
}

func TestLocalUniqueNames(t *testing.T) {
	svc, err := NewLocalService(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	first, err := svc.Save(ctx, fileHeader(t, "front.png", pngHeader))
	require.NoError(t, err)
	second, err := svc.Save(ctx, fileHeader(t, "front.png", pngHeader))
	require.NoError(t, err)
	require.NotEqual(t, first.Name, second.Name)
}

func TestLocalURL(t *testing.T) {
	svc, err := NewLocalService(t.TempDir())
	require.NoError(t, err)

	url, err := svc.URL(context.Background(), "123-abc.png", "http://example.com")
	require.NoError(t, err)
	require.Equal(t, "http://example.com/uploads/123-abc.png", url)
}
