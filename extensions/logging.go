package extensions

import (
	"context"
	"log/slog"
	"time"

	hotpatch "github.com/pumped-fn/hotpatch-go"
)

// LoggingExtension logs all operations
type LoggingExtension struct {
	hotpatch.BaseExtension
	logger *slog.Logger
}

// NewLoggingExtension creates a new logging extension writing to logHandler.
// A nil handler falls back to slog.Default().
func NewLoggingExtension(logHandler slog.Handler) *LoggingExtension {
	logger := slog.Default()
	if logHandler != nil {
		logger = slog.New(logHandler)
	}
	return &LoggingExtension{
		BaseExtension: hotpatch.NewBaseExtension("logging"),
		logger:        logger,
	}
}

func (e *LoggingExtension) Wrap(ctx context.Context, next func() (any, error), op *hotpatch.Operation) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	result, err := next()
	duration := time.Since(start)

	attrs := []any{
		"operation", string(op.Kind),
		"duration", duration,
	}
	if op.Key != "" {
		attrs = append(attrs, "key", op.Key)
	}
	if op.Patcher != nil {
		attrs = append(attrs, "patcher", op.Patcher.ID())
	}

	if err != nil {
		e.logger.ErrorContext(ctx, "hotpatch operation failed", append(attrs, "error", err.Error())...)
	} else {
		e.logger.DebugContext(ctx, "hotpatch operation completed", attrs...)
	}

	return result, err
}
