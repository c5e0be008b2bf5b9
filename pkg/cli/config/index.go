package config

import (
	"context"
	"log/slog"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/madoguchi/pkg/service/vectorindex"
	"github.com/secmon-lab/madoguchi/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Index holds the vector index persistence location
type Index struct {
	location string
}

// Flags returns CLI flags for index configuration
func (x *Index) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "index-location",
			Usage:       "Directory or gs://bucket/prefix for the persisted index (empty keeps it in memory only)",
			Category:    "Index",
			Value:       ".madoguchi",
			Sources:     cli.EnvVars("MADOGUCHI_INDEX_LOCATION"),
			Destination: &x.location,
		},
	}
}

// LogValue implements slog.LogValuer
func (x Index) LogValue() slog.Value {
	return slog.GroupValue(slog.String("location", x.location))
}

// Configure opens the index store. A nil store means the index is not persisted.
// The returned function releases the store's client.
func (x *Index) Configure(ctx context.Context) (vectorindex.Store, func(), error) {
	if x.location == "" {
		logging.Default().Warn("index location not set; the index is rebuilt on every start")
		return nil, func() {}, nil
	}

	if bucket, prefix, ok := vectorindex.ParseGCSURL(x.location); ok {
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, func() {}, goerr.Wrap(err, "failed to create cloud storage client", goerr.V("location", x.location))
		}
		closer := func() {
			if err := client.Close(); err != nil {
				logging.Default().Warn("failed to close cloud storage client", "error", err.Error())
			}
		}
		logging.Default().Info("Using Cloud Storage index store", "bucket", bucket, "prefix", prefix)
		return vectorindex.NewGCSStore(client, bucket, prefix), closer, nil
	}

	store, err := vectorindex.NewFileStore(x.location)
	if err != nil {
		return nil, func() {}, goerr.Wrap(err, "failed to open index directory", goerr.V("location", x.location))
	}
	logging.Default().Info("Using local index store", "dir", x.location)
	return store, func() {}, nil
}
