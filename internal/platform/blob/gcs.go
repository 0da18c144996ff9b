package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type GCSOptions struct {
	Bucket          string
	Prefix          string
	CredentialsFile string
	// EmulatorHost points the client at a fake-gcs-server style emulator.
	EmulatorHost string
}

// GCS keeps blobs in a Google Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

func NewGCS(ctx context.Context, opts GCSOptions) (*GCS, error) {
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, errors.New("gcs bucket is empty")
	}

	var clientOpts []option.ClientOption
	switch {
	case opts.EmulatorHost != "":
		_ = os.Setenv("STORAGE_EMULATOR_HOST", strings.TrimRight(opts.EmulatorHost, "/"))
		clientOpts = append(clientOpts, option.WithoutAuthentication())
	case opts.CredentialsFile != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	clientOpts = append(clientOpts, option.WithScopes(storage.ScopeReadWrite))

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client failed: %w", err)
	}
	return &GCS{
		client: client,
		bucket: opts.Bucket,
		prefix: strings.Trim(opts.Prefix, "/"),
	}, nil
}

func (s *GCS) object(key string) *storage.ObjectHandle {
	name := strings.TrimLeft(key, "/")
	if s.prefix != "" {
		name = s.prefix + "/" + name
	}
	return s.client.Bucket(s.bucket).Object(name)
}

func (s *GCS) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("write data to gcs failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close gcs writer failed: %w", err)
	}
	return nil
}

func (s *GCS) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := s.object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("open gcs object failed: %w", err)
	}
	return rc, nil
}

func (s *GCS) Delete(ctx context.Context, key string) error {
	if err := s.object(key).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete gcs object failed: %w", err)
	}
	return nil
}

func (s *GCS) Close() error {
	return s.client.Close()
}
