package middleware

import (
	"context"
	"log/slog"
	"time"

	"stayengine/internal/app/commands"
	"stayengine/internal/app/queries"
)

func Logging(logger *slog.Logger) CommandMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := next.Dispatch
		return commands.BusFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			start := time.Now()
			res, err := nextFn(ctx, cmd)
			attrs := []any{"command", cmd.Key(), "duration", time.Since(start)}
			if err != nil {
				logger.InfoContext(ctx, "command rejected", append(attrs, "error", err)...)
				return nil, err
			}
			logger.DebugContext(ctx, "command handled", attrs...)
			return res, nil
		})
	}
}

func QueryLogging(logger *slog.Logger) QueryMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := next.Ask
		return queries.BusFunc(func(ctx context.Context, q queries.Query) (any, error) {
			start := time.Now()
			res, err := nextFn(ctx, q)
			logger.DebugContext(ctx, "query handled", "query", q.Key(), "duration", time.Since(start), "error", err)
			return res, err
		})
	}
}
