package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileAdapter stores each key as a file under a root directory. Writes go
// to a temporary file that is renamed into place, so a reader sees either
// the old blob or the new one.
type FileAdapter struct {
	root string
}

// NewFileAdapter returns a FileAdapter rooted at root, creating the
// directory if needed. An empty root defaults to ./graphcache-data.
func NewFileAdapter(root string) (*FileAdapter, error) {
	if root == "" {
		root = "./graphcache-data"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root %q: %w", root, err)
	}
	return &FileAdapter{root: root}, nil
}

// Root returns the directory holding the stored files.
func (f *FileAdapter) Root() string { return f.root }

// sanitizeKey rejects keys that would escape the root directory.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %q contains '..'", ErrInvalidKey, key)
	}
	if strings.HasPrefix(key, "/") || filepath.IsAbs(key) {
		return "", fmt.Errorf("%w: %q is absolute", ErrInvalidKey, key)
	}
	if strings.ContainsAny(key, "\x00\n\r") {
		return "", fmt.Errorf("%w: %q contains control characters", ErrInvalidKey, key)
	}
	return filepath.ToSlash(filepath.Clean(key)), nil
}

func (f *FileAdapter) pathFor(key string) (string, error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(f.root, filepath.FromSlash(k)), nil
}

// GetItem reads the file for key.
func (f *FileAdapter) GetItem(ctx context.Context, key string) (string, bool, error) {
	path, err := f.pathFor(key)
	if err != nil {
		return "", false, err
	}
	if err := ctx.Err(); err != nil {
		return "", false, Unavailable(OpGet, key, err)
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, Unavailable(OpGet, key, err)
	}
	return string(b), true, nil
}

// SetItem atomically replaces the file for key.
func (f *FileAdapter) SetItem(ctx context.Context, key, data string) error {
	path, err := f.pathFor(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return Unavailable(OpSet, key, err)
	}
	if err := writeAtomic(path, []byte(data)); err != nil {
		return Unavailable(OpSet, key, err)
	}
	return nil
}

// RemoveItem deletes the file for key.
func (f *FileAdapter) RemoveItem(ctx context.Context, key string) error {
	path, err := f.pathFor(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return Unavailable(OpRemove, key, err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Unavailable(OpRemove, key, err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

var _ Adapter = (*FileAdapter)(nil)
