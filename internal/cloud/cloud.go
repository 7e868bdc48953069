// Package cloud keeps copies of the error index in object storage so an
// index built on one host can be looked up from another.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrNotFound is returned by Get when the object does not exist.
var ErrNotFound = errors.New("remote object not found")

// Store abstracts the object storage operations used for index snapshots.
type Store interface {
	// Put writes the content from r to the given key.
	Put(ctx context.Context, key string, r io.Reader, size int64) error

	// Get reads the object at key and writes it to w.
	Get(ctx context.Context, key string, w io.Writer) error
}

// Location identifies one object in a bucket.
type Location struct {
	Scheme string
	Bucket string
	Key    string
}

func (l Location) String() string {
	return l.Scheme + "://" + l.Bucket + "/" + l.Key
}

// ParseLocation parses s3://bucket/key or gs://bucket/key. The key is taken as
// the object name when it has the same extension as name; otherwise it is a
// prefix and name is appended to it.
func ParseLocation(raw, name string) (Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{}, fmt.Errorf("empty URL")
	}

	var loc Location
	var rest string
	switch {
	case strings.HasPrefix(raw, "s3://"):
		loc.Scheme = "s3"
		rest = strings.TrimPrefix(raw, "s3://")
	case strings.HasPrefix(raw, "gs://"):
		loc.Scheme = "gs"
		rest = strings.TrimPrefix(raw, "gs://")
	default:
		return Location{}, fmt.Errorf("unsupported scheme in %q: expected s3:// or gs://", raw)
	}

	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return Location{}, fmt.Errorf("empty bucket in %q", raw)
	}
	loc.Bucket = bucket

	switch {
	case key == "" || strings.HasSuffix(key, "/"):
		key += name
	case name != "" && path.Ext(key) != path.Ext(name):
		// a prefix, not an object name
		key += "/" + name
	}
	if key == "" {
		return Location{}, fmt.Errorf("no object key in %q", raw)
	}
	loc.Key = key
	return loc, nil
}

// Open creates a Store for the location's scheme and bucket.
func Open(ctx context.Context, loc Location) (Store, error) {
	switch loc.Scheme {
	case "s3":
		return newS3Store(ctx, loc.Bucket)
	case "gs":
		return newGCSStore(ctx, loc.Bucket)
	default:
		return nil, fmt.Errorf("unsupported scheme %q: expected s3 or gs", loc.Scheme)
	}
}
