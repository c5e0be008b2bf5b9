package http

import (
	"context"

	"github.com/secmon-lab/madoguchi/pkg/domain/model"
	"github.com/secmon-lab/madoguchi/pkg/usecase"
)

// SearchUseCase is the retrieval surface the API needs
type SearchUseCase interface {
	Search(ctx context.Context, query string, k int) (*model.SearchResponse, error)
	ListFAQ(ctx context.Context, filter usecase.FAQFilter) (*usecase.FAQPage, error)
	Categories(ctx context.Context) ([]string, error)
	Answer(ctx context.Context, id model.RecordID) (*model.QARecord, error)
	Stats() model.IndexStats
}

// FeedbackUseCase is the feedback surface the API needs
type FeedbackUseCase interface {
	Record(ctx context.Context, in usecase.FeedbackInput) (*model.Feedback, error)
	List(ctx context.Context, filter model.FeedbackFilter) ([]*model.Feedback, error)
}
