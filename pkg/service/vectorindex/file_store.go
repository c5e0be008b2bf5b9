package vectorindex

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/madoguchi/pkg/utils/safe"
)

const lockRetryDelay = 50 * time.Millisecond

// FileStore keeps objects as files in a directory. Writes go to a temp file
// that is renamed into place; a lock file serializes writers across processes.
type FileStore struct {
	dir      string
	lockPath string
}

// NewFileStore creates the directory if needed
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, goerr.Wrap(err, "failed to create index directory", goerr.V("dir", dir))
	}
	return &FileStore{
		dir:      dir,
		lockPath: filepath.Join(dir, ".lock"),
	}, nil
}

// Location implements Store
func (s *FileStore) Location() string {
	return s.dir
}

// Put implements Store
func (s *FileStore) Put(ctx context.Context, name string, data []byte) error {
	// one Flock per call: a shared handle would let a reader release a writer's lock
	lock := flock.New(s.lockPath)
	if err := lockOrFail(lock.TryLockContext(ctx, lockRetryDelay)); err != nil {
		return goerr.Wrap(err, "failed to lock index directory", goerr.V("dir", s.dir))
	}
	defer func() { _ = lock.Unlock() }()

	tmp, err := os.CreateTemp(s.dir, "."+name+".tmp-*")
	if err != nil {
		return goerr.Wrap(err, "failed to create temp file", goerr.V("dir", s.dir))
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			safe.Remove(ctx, os.Remove, tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return goerr.Wrap(err, "failed to write temp file", goerr.V("path", tmpPath))
	}
	if err := tmp.Sync(); err != nil {
		return goerr.Wrap(err, "failed to sync temp file", goerr.V("path", tmpPath))
	}
	if err := tmp.Close(); err != nil {
		return goerr.Wrap(err, "failed to close temp file", goerr.V("path", tmpPath))
	}

	dst := filepath.Join(s.dir, name)
	if err := os.Rename(tmpPath, dst); err != nil {
		return goerr.Wrap(err, "failed to replace file", goerr.V("path", dst))
	}
	committed = true
	return nil
}

// Get implements Store
func (s *FileStore) Get(ctx context.Context, name string) ([]byte, error) {
	lock := flock.New(s.lockPath)
	if err := lockOrFail(lock.TryRLockContext(ctx, lockRetryDelay)); err != nil {
		return nil, goerr.Wrap(err, "failed to lock index directory", goerr.V("dir", s.dir))
	}
	defer func() { _ = lock.Unlock() }()

	path := filepath.Join(s.dir, name)
	// #nosec G304 - name is one of the fixed object names
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrNotFound, "index file not found", goerr.V("path", path))
		}
		return nil, goerr.Wrap(err, "failed to read file", goerr.V("path", path))
	}
	return data, nil
}

func lockOrFail(locked bool, err error) error {
	if err != nil {
		return err
	}
	if !locked {
		return goerr.New("lock not acquired")
	}
	return nil
}
