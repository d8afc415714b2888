package middleware

import (
	"context"
	"log/slog"

	"stayengine/internal/app/commands"
	"stayengine/internal/app/outbox"
)

// OutboxFlush flushes buffered events after a successful command. The command
// has already committed, so a flush failure is logged rather than returned.
func OutboxFlush(box outbox.Outbox, logger *slog.Logger) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := next.Dispatch
		return commands.BusFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := nextFn(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := box.Flush(ctx); err != nil {
				logger.ErrorContext(ctx, "outbox flush failed", "command", cmd.Key(), "error", err)
			}
			return res, nil
		})
	}
}
