package interfaces

import (
	"context"

	"github.com/secmon-lab/madoguchi/pkg/domain/model"
)

// CorpusLoader reads the current corpus from its sources.
// Row and file problems are reported in Corpus.Errors, not as an error.
type CorpusLoader interface {
	Load(ctx context.Context) (*model.Corpus, error)
}
