package usecase

import "errors"

// Sentinel errors for use case layer
var (
	// Availability errors
	ErrServiceUnavailable = errors.New("search temporarily unavailable")
	ErrEmbeddingFailed    = errors.New("query embedding failed")

	// Build errors
	ErrEmptyCorpus = errors.New("corpus has no valid records")

	// Input errors
	ErrInvalidQuery    = errors.New("invalid query")
	ErrInvalidFeedback = errors.New("invalid feedback")

	// Not found errors
	ErrAnswerNotFound = errors.New("answer not found")
)

// Context keys for error values
const (
	AnswerIDKey = "answer_id"
	StateKey    = "state"
)
