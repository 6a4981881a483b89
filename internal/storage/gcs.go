package storage

import (
	"context"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
)

const gcsPublicBase = "https://storage.googleapis.com/"

// GCS writes blobs to a Cloud Storage bucket using application default
// credentials.
type GCS struct {
	client *gcs.Client
	bucket string
}

func NewGCS(ctx context.Context, bucket string) (*GCS, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	return &GCS{client: client, bucket: bucket}, nil
}

func (g *GCS) Put(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error) {
	p, err := cleanPath(objectPath)
	if err != nil {
		return "", err
	}

	w := g.client.Bucket(g.bucket).Object(p).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("uploading object: %w", err)
	}

	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalizing object: %w", err)
	}

	return publicURL(gcsPublicBase+g.bucket, p), nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}
