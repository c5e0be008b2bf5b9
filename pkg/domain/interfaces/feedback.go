package interfaces

import (
	"context"

	"github.com/secmon-lab/madoguchi/pkg/domain/model"
)

// FeedbackRepository defines the interface for Feedback persistence.
// Feedback is append-only: there is no update or delete.
type FeedbackRepository interface {
	// Create persists a new feedback entry. ID and CreatedAt are assigned when empty.
	Create(ctx context.Context, feedback *model.Feedback) (*model.Feedback, error)

	// List returns feedback matching filter, newest first
	List(ctx context.Context, filter model.FeedbackFilter) ([]*model.Feedback, error)
}
