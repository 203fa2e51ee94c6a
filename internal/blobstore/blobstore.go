// Package blobstore stores uploaded authorization files and serves them back
// under /files/. Keys are slash-separated relative paths.
package blobstore

import (
	"context"
	"errors"
	"net/http"
	"path"
	"regexp"
	"strings"

	"asamblea/pkg/platform/sentinel"
)

// Blob is a stored file.
type Blob struct {
	ContentType string
	Data        []byte
}

// Store writes blobs and returns a retrievable URL.
type Store interface {
	Put(ctx context.Context, key string, blob Blob) (string, error)
	Get(ctx context.Context, key string) (Blob, error)
}

var unsafeSegment = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SafeSegment reduces s to characters that are safe in a single path segment.
func SafeSegment(s string) string {
	s = unsafeSegment.ReplaceAllString(strings.TrimSpace(s), "_")
	s = strings.Trim(s, "._")
	if s == "" {
		return "_"
	}
	return s
}

// CleanKey validates a key and rejects traversal outside the store root.
func CleanKey(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return "", errors.New("blob key is required")
	}
	cleaned := path.Clean(key)
	if cleaned == "." || strings.HasPrefix(cleaned, "../") || cleaned == ".." {
		return "", errors.New("blob key escapes the store root")
	}
	return cleaned, nil
}

func urlFor(baseURL, key string) string {
	return strings.TrimSuffix(baseURL, "/") + "/files/" + key
}

// Handler serves blobs for GET /files/{key...}. Mount it under /files.
func Handler(store Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, err := CleanKey(strings.TrimPrefix(r.URL.Path, "/files"))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		blob, err := store.Get(r.Context(), key)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
			return
		}
		contentType := blob.ContentType
		if contentType == "" {
			contentType = http.DetectContentType(blob.Data)
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		_, _ = w.Write(blob.Data)
	})
}
