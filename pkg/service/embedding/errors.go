package embedding

import (
	"context"
	"errors"
	"net"

	"github.com/m-mizutani/goerr/v2"
)

var (
	// ErrProviderUnavailable is returned once retries for a batch are exhausted
	ErrProviderUnavailable = goerr.New("embedding provider unavailable")

	// ErrEmbedding is returned for non-retryable embedding failures such as a malformed response
	ErrEmbedding = goerr.New("embedding failed")

	// ErrTransient marks a provider failure worth retrying
	ErrTransient = goerr.New("transient provider failure")

	// ErrEmptyText is returned when an input text is empty after trimming
	ErrEmptyText = goerr.New("empty text")
)

type transientError struct {
	cause error
}

func (e *transientError) Error() string { return e.cause.Error() }
func (e *transientError) Unwrap() error { return e.cause }
func (e *transientError) Is(target error) bool {
	return target == ErrTransient
}

// MarkTransient flags err as retryable while keeping it in the error chain
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{cause: err}
}

// IsTransient reports whether err should be retried
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransient) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// isCanceled reports whether err comes from the caller giving up
func isCanceled(ctx context.Context, err error) bool {
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}
