package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"

	"asamblea/pkg/platform/sentinel"
)

// Filesystem writes blobs under a root directory. The content type is
// recovered from the file extension on read.
type Filesystem struct {
	root    string
	baseURL string
}

func NewFilesystem(root, baseURL string) (*Filesystem, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Filesystem{root: root, baseURL: baseURL}, nil
}

func (f *Filesystem) Put(ctx context.Context, key string, blob Blob) (string, error) {
	key, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	full := filepath.Join(f.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return "", fmt.Errorf("%w: create blob dir: %v", sentinel.ErrUnavailable, err)
	}
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, blob.Data, 0o640); err != nil {
		return "", fmt.Errorf("%w: write blob: %v", sentinel.ErrUnavailable, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("%w: commit blob: %v", sentinel.ErrUnavailable, err)
	}
	return urlFor(f.baseURL, key), nil
}

func (f *Filesystem) Get(_ context.Context, key string) (Blob, error) {
	key, err := CleanKey(key)
	if err != nil {
		return Blob{}, sentinel.ErrNotFound
	}
	data, err := os.ReadFile(filepath.Join(f.root, filepath.FromSlash(key)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Blob{}, sentinel.ErrNotFound
		}
		return Blob{}, fmt.Errorf("%w: read blob: %v", sentinel.ErrUnavailable, err)
	}
	return Blob{ContentType: mime.TypeByExtension(filepath.Ext(key)), Data: data}, nil
}
