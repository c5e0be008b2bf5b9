package async

import (
	"context"
	"log/slog"

	"github.com/secmon-lab/madoguchi/pkg/utils/errutil"
	"github.com/secmon-lab/madoguchi/pkg/utils/logging"
)

// Dispatch runs handler in a new goroutine detached from ctx cancellation.
// The logger of ctx is carried over. The returned channel is closed when the
// handler has returned, so callers that care (tests, shutdown) can wait on it.
func Dispatch(ctx context.Context, name string, handler func(ctx context.Context) error) <-chan struct{} {
	bgCtx := logging.With(context.WithoutCancel(ctx), logging.From(ctx).With(slog.String("task", name)))
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				logging.From(bgCtx).Error("panic in async handler", "panic", r)
			}
		}()

		if err := handler(bgCtx); err != nil {
			_ = errutil.Handle(bgCtx, err, "async handler failed")
		}
	}()

	return done
}
