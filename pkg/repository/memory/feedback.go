package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/secmon-lab/madoguchi/pkg/domain/model"
)

type feedbackRepository struct {
	mu       sync.RWMutex
	feedback []*model.Feedback
}

func newFeedbackRepository() *feedbackRepository {
	return &feedbackRepository{}
}

func copyFeedback(f *model.Feedback) *model.Feedback {
	copied := *f
	return &copied
}

func (r *feedbackRepository) Create(ctx context.Context, feedback *model.Feedback) (*model.Feedback, error) {
	created := copyFeedback(feedback)
	if created.ID == "" {
		created.ID = model.NewFeedbackID()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.feedback = append(r.feedback, created)

	return copyFeedback(created), nil
}

func (r *feedbackRepository) List(ctx context.Context, filter model.FeedbackFilter) ([]*model.Feedback, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.Feedback, 0)
	for _, f := range slices.Backward(r.feedback) {
		if !filter.Match(f) {
			continue
		}
		result = append(result, copyFeedback(f))
	}
	sortNewestFirst(result)

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// sortNewestFirst keeps insertion order (newest first) among equal timestamps
func sortNewestFirst(list []*model.Feedback) {
	slices.SortStableFunc(list, func(a, b *model.Feedback) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}
