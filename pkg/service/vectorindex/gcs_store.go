package vectorindex

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/madoguchi/pkg/utils/safe"
)

// GCSStore keeps objects in a Cloud Storage bucket. Object writes become
// visible only when the writer is closed, which gives atomic replacement.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSStore creates a store for gs://bucket/prefix
func NewGCSStore(client *storage.Client, bucket, prefix string) *GCSStore {
	return &GCSStore{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// ParseGCSURL splits gs://bucket/prefix. ok is false for other locations.
func ParseGCSURL(location string) (bucket, prefix string, ok bool) {
	rest, found := strings.CutPrefix(location, "gs://")
	if !found || rest == "" {
		return "", "", false
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", false
	}
	return bucket, strings.Trim(prefix, "/"), true
}

func (s *GCSStore) object(name string) *storage.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(path.Join(s.prefix, name))
}

// Location implements Store
func (s *GCSStore) Location() string {
	return "gs://" + path.Join(s.bucket, s.prefix)
}

// Put implements Store
func (s *GCSStore) Put(ctx context.Context, name string, data []byte) error {
	w := s.object(name).NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	if strings.HasSuffix(name, ".json") {
		w.ContentType = "application/json"
	}

	if _, err := w.Write(data); err != nil {
		safe.Close(ctx, w)
		return goerr.Wrap(err, "failed to write object", goerr.V("bucket", s.bucket), goerr.V("name", name))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to commit object", goerr.V("bucket", s.bucket), goerr.V("name", name))
	}
	return nil
}

// Get implements Store
func (s *GCSStore) Get(ctx context.Context, name string) ([]byte, error) {
	r, err := s.object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, goerr.Wrap(ErrNotFound, "index object not found", goerr.V("bucket", s.bucket), goerr.V("name", name))
		}
		return nil, goerr.Wrap(err, "failed to open object", goerr.V("bucket", s.bucket), goerr.V("name", name))
	}
	defer safe.Close(ctx, r)

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read object", goerr.V("bucket", s.bucket), goerr.V("name", name))
	}
	return data, nil
}
