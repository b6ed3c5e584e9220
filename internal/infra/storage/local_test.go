package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalSaveURLDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocal(dir, "http://localhost:8080/storage/")
	require.NoError(t, err)
	ctx := context.Background()

	rel, err := store.Save(ctx, []byte("png"), "PNG")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(rel, "recipes/"))
	require.True(t, strings.HasSuffix(rel, ".png"))

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	require.Equal(t, []byte("png"), data)

	require.Equal(t, "http://localhost:8080/storage/"+rel, store.URL(rel))

	require.NoError(t, store.Delete(ctx, rel))
	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(rel)))
	require.True(t, os.IsNotExist(err))
	require.NoError(t, store.Delete(ctx, rel), "повторное удаление не ошибка")
}

func TestLocalRejectsUnknownExtension(t *testing.T) {
	store, err := NewLocal(t.TempDir(), "http://x")
	require.NoError(t, err)
	_, err = store.Save(context.Background(), []byte("x"), ".exe")
	require.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestLocalExternalImages(t *testing.T) {
	store, err := NewLocal(t.TempDir(), "http://x")
	require.NoError(t, err)
	ext := "https://static.example.com/bolo.jpg"
	require.Equal(t, ext, store.URL(ext))
	require.NoError(t, store.Delete(context.Background(), ext))
	require.Equal(t, "", store.URL(""))
}

func TestLocalDeleteStaysInsideStorage(t *testing.T) {
	dir := t.TempDir()
	outside := filepath.Join(dir, "keep.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))

	store, err := NewLocal(filepath.Join(dir, "storage"), "http://x")
	require.NoError(t, err)
	require.NoError(t, store.Delete(context.Background(), "../keep.txt"))
	require.NoError(t, store.Delete(context.Background(), "recipes/../../keep.txt"))

	_, err = os.Stat(outside)
	require.NoError(t, err)
}

func TestSupported(t *testing.T) {
	require.True(t, Supported(".JPG"))
	require.True(t, Supported("webp"))
	require.False(t, Supported(".pdf"))
	require.False(t, Supported(""))
}
