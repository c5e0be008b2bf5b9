package safe

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"

	"github.com/secmon-lab/madoguchi/pkg/utils/logging"
)

// Close safely closes an io.Closer and logs any errors.
// It handles nil closers gracefully.
func Close(ctx context.Context, closer io.Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.From(ctx).Error("Failed to close", slog.Any("error", err))
	}
}

// Remove deletes a leftover temporary file. A missing file is not an error.
func Remove(ctx context.Context, remove func(string) error, path string) {
	if err := remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.From(ctx).Warn("Failed to remove file", slog.String("path", path), slog.Any("error", err))
	}
}
