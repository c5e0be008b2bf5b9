package usecase

import (
	"github.com/secmon-lab/madoguchi/pkg/domain/interfaces"
)

type UseCases struct {
	repo     interfaces.Repository
	loader   interfaces.CorpusLoader
	embedder interfaces.Embedder

	searchOpts []SearchOption

	Search   *SearchUseCase
	Feedback *FeedbackUseCase
}

type Option func(*UseCases)

func WithSearchOptions(opts ...SearchOption) Option {
	return func(uc *UseCases) {
		uc.searchOpts = append(uc.searchOpts, opts...)
	}
}

func New(repo interfaces.Repository, loader interfaces.CorpusLoader, embedder interfaces.Embedder, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:     repo,
		loader:   loader,
		embedder: embedder,
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.Search = NewSearchUseCase(loader, embedder, uc.searchOpts...)
	uc.Feedback = NewFeedbackUseCase(repo)

	return uc
}
