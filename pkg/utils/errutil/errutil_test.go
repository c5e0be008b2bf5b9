package errutil_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/madoguchi/pkg/utils/errutil"
)

type recordingTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (t *recordingTransport) Flush(time.Duration) bool              { return true }
func (t *recordingTransport) FlushWithContext(context.Context) bool { return true }
func (t *recordingTransport) Configure(sentry.ClientOptions)        {}
func (t *recordingTransport) Close()                                {}
func (t *recordingTransport) SendEvent(event *sentry.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}

func (t *recordingTransport) Events() []*sentry.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*sentry.Event(nil), t.events...)
}

func bindRecorder(t *testing.T) *recordingTransport {
	t.Helper()
	transport := &recordingTransport{}
	client, err := sentry.NewClient(sentry.ClientOptions{Transport: transport})
	gt.NoError(t, err).Required()

	hub := sentry.CurrentHub()
	prev := hub.Client()
	hub.BindClient(client)
	t.Cleanup(func() { hub.BindClient(prev) })
	return transport
}

var errRebuild = goerr.New("rebuild failed")

func TestHandle(t *testing.T) {
	t.Run("goerr values are sent as context", func(t *testing.T) {
		transport := bindRecorder(t)

		err := goerr.Wrap(errRebuild, "dimension changed",
			goerr.V("model", "openai:text-embedding-3-small"),
			goerr.V("dim", 1536),
		)
		got := errutil.Handle(context.Background(), err, "index refresh failed")
		gt.Error(t, got).Is(errRebuild)

		events := transport.Events()
		gt.Array(t, events).Length(1).Required()
		gt.Value(t, events[0].Tags["message"]).Equal("index refresh failed")

		values, ok := events[0].Contexts["goerr"]
		gt.Bool(t, ok).True()
		gt.Value(t, values["model"]).Equal("openai:text-embedding-3-small")
		gt.Value(t, values["dim"]).Equal(1536)
	})

	t.Run("plain errors are reported without values", func(t *testing.T) {
		transport := bindRecorder(t)

		_ = errutil.Handle(context.Background(), errors.New("boom"), "plain")

		events := transport.Events()
		gt.Array(t, events).Length(1).Required()
		_, ok := events[0].Contexts["goerr"]
		gt.Bool(t, ok).False()
	})

	t.Run("nil error is ignored", func(t *testing.T) {
		transport := bindRecorder(t)
		gt.NoError(t, errutil.Handle(context.Background(), nil, "nothing"))
		gt.Array(t, transport.Events()).Length(0)
	})
}

func TestHandleHTTP(t *testing.T) {
	bindRecorder(t)

	w := httptest.NewRecorder()
	errutil.HandleHTTP(context.Background(), w, goerr.New("bad input"), http.StatusBadRequest, "invalid request")

	gt.Number(t, w.Code).Equal(http.StatusBadRequest)
	var resp errutil.ErrorResponse
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp)).Required()
	gt.Bool(t, resp.Error).True()
	gt.String(t, resp.Message).Equal("invalid request")
	gt.String(t, resp.Detail).Contains("bad input")
	gt.Number(t, resp.StatusCode).Equal(http.StatusBadRequest)
}
