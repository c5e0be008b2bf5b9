package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/madoguchi/pkg/cli/config"
	"github.com/secmon-lab/madoguchi/pkg/service/corpus"
	"github.com/secmon-lab/madoguchi/pkg/service/embedding"
	"github.com/secmon-lab/madoguchi/pkg/usecase"
	"github.com/secmon-lab/madoguchi/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// engineConfig gathers the flags every command that touches the index needs
type engineConfig struct {
	corpus    config.Corpus
	embedding config.Embedding
	index     config.Index
	search    config.Search
}

func (x *engineConfig) Flags() []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, x.corpus.Flags()...)
	flags = append(flags, x.embedding.Flags()...)
	flags = append(flags, x.index.Flags()...)
	flags = append(flags, x.search.Flags()...)
	return flags
}

type engine struct {
	loader     *corpus.Loader
	embedder   *embedding.Client
	searchOpts []usecase.SearchOption
	close      func()
}

// Configure wires loader, embedding client and index store. Call close when done.
func (x *engineConfig) Configure(ctx context.Context) (*engine, error) {
	if err := config.ValidateTimeouts(&x.embedding, &x.search); err != nil {
		return nil, err
	}
	searchCfg, err := x.search.Configure()
	if err != nil {
		return nil, err
	}

	loader, err := x.corpus.Configure()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to configure corpus")
	}

	embedder, err := x.embedding.Configure(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to configure embedding client")
	}

	store, closeStore, err := x.index.Configure(ctx)
	if err != nil {
		return nil, err
	}

	opts := []usecase.SearchOption{usecase.WithSearchConfig(searchCfg)}
	if store != nil {
		opts = append(opts, usecase.WithIndexStore(store))
	}

	logging.Default().Info("Engine configured",
		"corpus", x.corpus,
		"embedding", x.embedding,
		"index", x.index,
		"search", x.search,
		"model", embedder.ModelID(),
	)

	return &engine{
		loader:     loader,
		embedder:   embedder,
		searchOpts: opts,
		close:      closeStore,
	}, nil
}

func (e *engine) searchUseCase() *usecase.SearchUseCase {
	return usecase.NewSearchUseCase(e.loader, e.embedder, e.searchOpts...)
}
