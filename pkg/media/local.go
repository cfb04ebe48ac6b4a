package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage writes uploads below a directory served at BaseURL.
type LocalStorage struct {
	root    string
	baseURL string
}

func NewLocalStorage(root, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("media: create storage dir: %w", err)
	}
	return &LocalStorage{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalStorage) Upload(ctx context.Context, f File, scope string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	key := ObjectKey(f, scope)
	dst := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return Result{}, fmt.Errorf("media: create object dir: %w", err)
	}
	if err := os.WriteFile(dst, f.Data, 0o644); err != nil {
		return Result{}, fmt.Errorf("media: write object: %w", err)
	}
	return Result{URL: s.baseURL + "/" + key}, nil
}
