// Package storage writes uploaded project documents to a blob store and
// returns the URL they are served from.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var ErrInvalidPath = errors.New("invalid object path")

// Store is a write-only blob store keyed by slash-separated object paths.
// Put returns the URL the object is served from.
type Store interface {
	Put(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
}

func cleanPath(objectPath string) (string, error) {
	p := strings.TrimPrefix(path.Clean("/"+objectPath), "/")
	if p == "" || p != strings.TrimPrefix(objectPath, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, objectPath)
	}

	return p, nil
}

func publicURL(base, objectPath string) string {
	segments := strings.Split(objectPath, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}

	return strings.TrimSuffix(base, "/") + "/" + strings.Join(segments, "/")
}

// Local keeps blobs on disk under Root; the HTTP router serves Root at
// BaseURL.
type Local struct {
	Root    string
	BaseURL string
}

func NewLocal(root, baseURL string) *Local {
	return &Local{Root: root, BaseURL: baseURL}
}

func (l *Local) Put(_ context.Context, objectPath, _ string, r io.Reader) (string, error) {
	p, err := cleanPath(objectPath)
	if err != nil {
		return "", err
	}

	full := filepath.Join(l.Root, filepath.FromSlash(p))

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("creating directory: %w", err)
	}

	f, err := os.Create(full)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}

	_, err = io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(full)
		return "", fmt.Errorf("writing file: %w", err)
	}

	return publicURL(l.BaseURL, p), nil
}
