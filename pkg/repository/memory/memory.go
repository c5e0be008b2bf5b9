package memory

import (
	"github.com/secmon-lab/madoguchi/pkg/domain/interfaces"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

type Memory struct {
	feedback *feedbackRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		feedback: newFeedbackRepository(),
	}
}

func (m *Memory) Feedback() interfaces.FeedbackRepository {
	return m.feedback
}

func (m *Memory) Close() error {
	return nil
}
