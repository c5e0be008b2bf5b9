package vectorindex

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

const (
	// DataName is the object holding the encoded index
	DataName = "qa.index"
	// MetaName is the sidecar holding the manifest alone, for cheap freshness checks
	MetaName = "qa.index.meta.json"
)

// Store keeps named blobs. Put must replace the object atomically so that a
// concurrent Get sees either the old or the new content. Get returns
// ErrNotFound for a missing object.
type Store interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
	// Location describes the store for logs
	Location() string
}

// Save persists x to store. The data object is written first so that a
// sidecar never describes an index that is not there yet.
func Save(ctx context.Context, store Store, x *Index) error {
	data, err := Encode(x)
	if err != nil {
		return goerr.Wrap(err, "failed to encode index")
	}
	if err := store.Put(ctx, DataName, data); err != nil {
		return goerr.Wrap(err, "failed to store index", goerr.V("location", store.Location()))
	}

	meta, err := json.MarshalIndent(x.manifest, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal manifest")
	}
	if err := store.Put(ctx, MetaName, meta); err != nil {
		return goerr.Wrap(err, "failed to store index metadata", goerr.V("location", store.Location()))
	}
	return nil
}

// Load restores the persisted index, or ErrNotFound
func Load(ctx context.Context, store Store) (*Index, error) {
	data, err := store.Get(ctx, DataName)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, goerr.Wrap(err, "failed to read index", goerr.V("location", store.Location()))
	}

	x, err := Decode(data)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to decode index", goerr.V("location", store.Location()))
	}
	return x, nil
}

// LoadManifest reads only the sidecar. When the sidecar is missing or
// unreadable the data object is decoded instead.
func LoadManifest(ctx context.Context, store Store) (*Manifest, error) {
	raw, err := store.Get(ctx, MetaName)
	if err == nil {
		var m Manifest
		if jsonErr := json.Unmarshal(raw, &m); jsonErr == nil {
			if checkErr := checkManifest(m); checkErr != nil {
				return nil, checkErr
			}
			return &m, nil
		}
	} else if !errors.Is(err, ErrNotFound) {
		return nil, goerr.Wrap(err, "failed to read index metadata", goerr.V("location", store.Location()))
	}

	x, err := Load(ctx, store)
	if err != nil {
		return nil, err
	}
	m := x.Manifest()
	return &m, nil
}

// Age returns how long ago the manifest was built
func (m Manifest) Age(now time.Time) time.Duration {
	return now.Sub(m.BuiltAt)
}
