package errutil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/madoguchi/pkg/utils/logging"
)

// ErrorResponse is the JSON body written for every failed API request
type ErrorResponse struct {
	Error      bool   `json:"error"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	StatusCode int    `json:"status_code"`
}

// Handle logs the error with a message and reports it to Sentry.
// Sentry capture is a no-op when no DSN has been configured.
func Handle(ctx context.Context, err error, msg string) error {
	if err == nil {
		return nil
	}

	logger := logging.From(ctx)

	var ge *goerr.Error
	if errors.As(err, &ge) {
		logger.Error(msg,
			"error", err.Error(),
			"values", ge.Values(),
			"stack", ge.Stacks(),
		)
	} else {
		logger.Error(msg, "error", err.Error())
	}

	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("message", msg)
		if ge != nil {
			scope.SetContext("goerr", sentry.Context(ge.Values()))
		}
	})
	hub.CaptureException(err)

	return err
}

// HandleHTTP logs the error and writes a JSON error response.
// message is shown to end users; the error text goes to detail.
func HandleHTTP(ctx context.Context, w http.ResponseWriter, err error, statusCode int, message string) {
	if err == nil {
		return
	}

	if statusCode >= http.StatusInternalServerError {
		_ = Handle(ctx, err, "HTTP error")
	} else {
		logging.From(ctx).Warn("HTTP client error",
			"status", statusCode,
			"error", err.Error(),
		)
	}

	resp := ErrorResponse{
		Error:      true,
		Message:    message,
		Detail:     err.Error(),
		StatusCode: statusCode,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}
