package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/madoguchi/pkg/usecase"
	"github.com/secmon-lab/madoguchi/pkg/utils/errutil"
	"github.com/secmon-lab/madoguchi/pkg/utils/logging"
)

const (
	msgNoResults   = "no related answers found"
	msgUnavailable = "search temporarily unavailable"
	msgSearchFail  = "search failed"
	msgBadRequest  = "invalid request"
	msgNotFound    = "answer not found"
	msgInternal    = "internal server error"
)

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError, msgInternal)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.From(ctx).Warn("failed to write response", "error", err.Error())
	}
}

// decodeJSON reads a bounded JSON body into v
func decodeJSON(r *http.Request, w http.ResponseWriter, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return goerr.New("request body is empty")
		}
		return goerr.Wrap(err, "malformed JSON body")
	}
	return nil
}

// handleError maps use case errors onto status codes and user-facing messages
func handleError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, usecase.ErrInvalidQuery), errors.Is(err, usecase.ErrInvalidFeedback):
		errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest, msgBadRequest)
	case errors.Is(err, usecase.ErrAnswerNotFound):
		errutil.HandleHTTP(ctx, w, err, http.StatusNotFound, msgNotFound)
	case errors.Is(err, usecase.ErrServiceUnavailable):
		w.Header().Set("Retry-After", "5")
		errutil.HandleHTTP(ctx, w, err, http.StatusServiceUnavailable, msgUnavailable)
	case errors.Is(err, context.DeadlineExceeded):
		// checked first: an embedding call cut off by the search timeout carries both
		errutil.HandleHTTP(ctx, w, err, http.StatusGatewayTimeout, msgSearchFail)
	case errors.Is(err, usecase.ErrEmbeddingFailed):
		errutil.HandleHTTP(ctx, w, err, http.StatusBadGateway, msgSearchFail)
	default:
		errutil.HandleHTTP(ctx, w, err, http.StatusInternalServerError, msgInternal)
	}
}
