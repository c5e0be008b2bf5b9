package model

import (
	"time"

	"github.com/google/uuid"
)

// FeedbackID is a UUID-based identifier for Feedback
type FeedbackID string

// NewFeedbackID generates a new UUID v4 FeedbackID
func NewFeedbackID() FeedbackID {
	return FeedbackID(uuid.New().String())
}

// Feedback is a helpful/not-helpful signal on a served answer.
// It is created once and never updated or deleted by the application.
type Feedback struct {
	ID        FeedbackID
	AnswerID  RecordID // SearchResult.ID the user rated
	Helpful   bool
	Comment   string // optional; the UI asks for it when Helpful is false
	Question  string // optional; the user query that produced the answer
	CreatedAt time.Time
}

// FeedbackFilter narrows a feedback listing. Zero values mean "no constraint".
type FeedbackFilter struct {
	AnswerID RecordID
	Helpful  *bool
	Since    time.Time
	Limit    int
}

// Match reports whether f satisfies the filter, ignoring Limit
func (x FeedbackFilter) Match(f *Feedback) bool {
	if x.AnswerID != "" && f.AnswerID != x.AnswerID {
		return false
	}
	if x.Helpful != nil && f.Helpful != *x.Helpful {
		return false
	}
	if !x.Since.IsZero() && f.CreatedAt.Before(x.Since) {
		return false
	}
	return true
}
