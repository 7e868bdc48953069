package cloud

import (
	"context"
	"errors"
	"fmt"
	"io"

	gstorage "cloud.google.com/go/storage"
)

type gcsStore struct {
	bucket    string
	newWriter func(ctx context.Context, bucket, key string) io.WriteCloser
	newReader func(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

func newGCSStore(ctx context.Context, bucket string) (*gcsStore, error) {
	client, err := gstorage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}
	return &gcsStore{
		bucket: bucket,
		newWriter: func(ctx context.Context, b, key string) io.WriteCloser {
			w := client.Bucket(b).Object(key).NewWriter(ctx)
			w.ContentType = "application/zstd"
			return w
		},
		newReader: func(ctx context.Context, b, key string) (io.ReadCloser, error) {
			return client.Bucket(b).Object(key).NewReader(ctx)
		},
	}, nil
}

func (s *gcsStore) Put(ctx context.Context, key string, r io.Reader, _ int64) error {
	w := s.newWriter(ctx, s.bucket, key)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs put %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs finalize %s: %w", key, err)
	}
	return nil
}

func (s *gcsStore) Get(ctx context.Context, key string, w io.Writer) error {
	r, err := s.newReader(ctx, s.bucket, key)
	if errors.Is(err, gstorage.ErrObjectNotExist) {
		return fmt.Errorf("gcs get %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("gcs get %s: %w", key, err)
	}
	defer func() { _ = r.Close() }()
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("gcs read %s: %w", key, err)
	}
	return nil
}
