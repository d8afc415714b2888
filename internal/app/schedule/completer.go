package schedule

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"stayengine/internal/app/commands"
	bookingapp "stayengine/internal/app/handlers/booking"
)

// Completer periodically closes confirmed stays whose checkout has passed.
type Completer struct {
	Commands commands.Bus
	Interval time.Duration
	Logger   *slog.Logger
}

var ErrCompleterNotConfigured = errors.New("schedule: completer missing command bus")

// Run ticks until ctx ends. The first pass runs immediately.
func (c *Completer) Run(ctx context.Context) error {
	if c.Commands == nil {
		return ErrCompleterNotConfigured
	}
	interval := c.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := c.Tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
			c.logger().ErrorContext(ctx, "complete stays tick failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick runs one completion pass and returns the completed booking ids.
func (c *Completer) Tick(ctx context.Context) ([]string, error) {
	res, err := commands.Dispatch[bookingapp.CompleteStaysCommand, *bookingapp.CompleteStaysResult](ctx, c.Commands, bookingapp.CompleteStaysCommand{})
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	c.logger().DebugContext(ctx, "complete stays tick", "completed", len(res.Completed))
	return res.Completed, nil
}

func (c *Completer) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
