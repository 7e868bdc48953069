package cloud

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	gstorage "cloud.google.com/go/storage"
)

// mockGCSWriter is a mock io.WriteCloser for GCS put tests.
type mockGCSWriter struct {
	buf      bytes.Buffer
	writeErr error
	closeErr error
}

func (m *mockGCSWriter) Write(p []byte) (int, error) {
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	return m.buf.Write(p)
}

func (m *mockGCSWriter) Close() error {
	return m.closeErr
}

func newTestGCSStore(writer *mockGCSWriter, readerBody string, readerErr error) *gcsStore {
	return &gcsStore{
		bucket: "test-bucket",
		newWriter: func(_ context.Context, _, _ string) io.WriteCloser {
			return writer
		},
		newReader: func(_ context.Context, _, _ string) (io.ReadCloser, error) {
			if readerErr != nil {
				return nil, readerErr
			}
			return io.NopCloser(strings.NewReader(readerBody)), nil
		},
	}
}

func TestGCSPut(t *testing.T) {
	tests := []struct {
		name    string
		writer  *mockGCSWriter
		wantErr string
	}{
		{"ok", &mockGCSWriter{}, ""},
		{"write error", &mockGCSWriter{writeErr: errors.New("write failed")}, "gcs put"},
		{"close error", &mockGCSWriter{closeErr: errors.New("finalize failed")}, "gcs finalize"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestGCSStore(tt.writer, "", nil)
			err := s.Put(context.Background(), "key", strings.NewReader("hello"), 5)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if tt.writer.buf.String() != "hello" {
					t.Errorf("written = %q, want %q", tt.writer.buf.String(), "hello")
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestGCSGet(t *testing.T) {
	s := newTestGCSStore(nil, "index bytes", nil)
	var buf bytes.Buffer
	if err := s.Get(context.Background(), "key", &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.String() != "index bytes" {
		t.Errorf("got %q", buf.String())
	}
}

func TestGCSGet_NotExist(t *testing.T) {
	s := newTestGCSStore(nil, "", gstorage.ErrObjectNotExist)
	err := s.Get(context.Background(), "key", io.Discard)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestGCSGet_Error(t *testing.T) {
	s := newTestGCSStore(nil, "", errors.New("permission denied"))
	err := s.Get(context.Background(), "key", io.Discard)
	if err == nil || errors.Is(err, ErrNotFound) || !strings.Contains(err.Error(), "gcs get") {
		t.Errorf("error = %v", err)
	}
}
