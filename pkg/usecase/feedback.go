package usecase

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/madoguchi/pkg/domain/interfaces"
	"github.com/secmon-lab/madoguchi/pkg/domain/model"
	"github.com/secmon-lab/madoguchi/pkg/utils/logging"
)

const (
	DefaultFeedbackLimit = 100
	MaxFeedbackLimit     = 1000
)

// FeedbackUseCase records helpful/not-helpful signals
type FeedbackUseCase struct {
	repo interfaces.Repository
}

// NewFeedbackUseCase creates a FeedbackUseCase
func NewFeedbackUseCase(repo interfaces.Repository) *FeedbackUseCase {
	return &FeedbackUseCase{repo: repo}
}

// FeedbackInput is a feedback submission
type FeedbackInput struct {
	AnswerID model.RecordID
	Helpful  bool
	Comment  string
	Question string
}

// Record stores a feedback entry. Only a non-empty answer id is required.
func (uc *FeedbackUseCase) Record(ctx context.Context, in FeedbackInput) (*model.Feedback, error) {
	answerID := model.RecordID(strings.TrimSpace(in.AnswerID.String()))
	if answerID == "" {
		return nil, goerr.Wrap(ErrInvalidFeedback, "answer id is required")
	}

	created, err := uc.repo.Feedback().Create(ctx, &model.Feedback{
		AnswerID: answerID,
		Helpful:  in.Helpful,
		Comment:  strings.TrimSpace(in.Comment),
		Question: strings.TrimSpace(in.Question),
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to record feedback", goerr.V(AnswerIDKey, answerID))
	}

	logging.From(ctx).Info("feedback recorded",
		"id", created.ID,
		"answer_id", created.AnswerID,
		"helpful", created.Helpful,
	)
	return created, nil
}

// List returns feedback newest first. Limit defaults to 100 and is capped at 1000.
func (uc *FeedbackUseCase) List(ctx context.Context, filter model.FeedbackFilter) ([]*model.Feedback, error) {
	switch {
	case filter.Limit <= 0:
		filter.Limit = DefaultFeedbackLimit
	case filter.Limit > MaxFeedbackLimit:
		filter.Limit = MaxFeedbackLimit
	}

	list, err := uc.repo.Feedback().List(ctx, filter)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list feedback")
	}
	return list, nil
}
