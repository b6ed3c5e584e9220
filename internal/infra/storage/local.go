package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const recipesDir = "recipes"

var allowedExt = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {},
}

// ErrUnsupportedImage возвращается для расширений, которые не являются изображениями.
var ErrUnsupportedImage = errors.New("неподдерживаемый формат изображения")

// Supported сообщает, принимается ли файл с таким расширением.
func Supported(ext string) bool {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	_, ok := allowedExt[ext]
	return ok
}

// Local хранит изображения рецептов на диске.
type Local struct {
	dir       string
	publicURL string
}

// NewLocal создаёт хранилище в каталоге dir. publicURL используется для ссылок на файлы.
func NewLocal(dir, publicURL string) (*Local, error) {
	if err := os.MkdirAll(filepath.Join(dir, recipesDir), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Local{dir: dir, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

// Dir возвращает корневой каталог хранилища.
func (l *Local) Dir() string { return l.dir }

// Save пишет файл под случайным именем и возвращает относительный путь.
func (l *Local) Save(ctx context.Context, data []byte, ext string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !Supported(ext) {
		return "", ErrUnsupportedImage
	}
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	rel := path.Join(recipesDir, uuid.NewString()+ext)
	if err := os.WriteFile(filepath.Join(l.dir, filepath.FromSlash(rel)), data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return rel, nil
}

// Delete удаляет сохранённый файл. Внешние URL и отсутствующие файлы игнорируются.
func (l *Local) Delete(ctx context.Context, rel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rel == "" || IsExternal(rel) {
		return nil
	}
	clean := path.Clean("/" + rel)[1:]
	if !strings.HasPrefix(clean, recipesDir+"/") {
		return nil
	}
	err := os.Remove(filepath.Join(l.dir, filepath.FromSlash(clean)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// URL возвращает публичную ссылку на изображение.
func (l *Local) URL(rel string) string {
	if rel == "" || IsExternal(rel) {
		return rel
	}
	return l.publicURL + "/" + strings.TrimLeft(rel, "/")
}

// IsExternal сообщает, что изображение задано внешней ссылкой.
func IsExternal(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}
