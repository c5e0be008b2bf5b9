package async_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/madoguchi/pkg/utils/async"
)

func TestDispatchRunsHandler(t *testing.T) {
	var called atomic.Bool
	done := async.Dispatch(context.Background(), "test", func(ctx context.Context) error {
		called.Store(true)
		return nil
	})
	<-done
	gt.Bool(t, called.Load()).True()
}

func TestDispatchIgnoresParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ctxErr error
	done := async.Dispatch(ctx, "test", func(ctx context.Context) error {
		ctxErr = ctx.Err()
		return errors.New("reported, not returned")
	})
	<-done
	gt.NoError(t, ctxErr)
}

func TestDispatchRecoversPanic(t *testing.T) {
	done := async.Dispatch(context.Background(), "test", func(ctx context.Context) error {
		panic("boom")
	})
	<-done
}
