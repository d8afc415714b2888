package booking

import (
	"context"
	"log/slog"
	"time"

	"stayengine/internal/app/handlers/support"
	"stayengine/internal/domain/availability"
	domainbooking "stayengine/internal/domain/booking"
	"stayengine/internal/domain/shared/daterange"
)

const completeStaysKey = "booking.complete_stays"

type CompleteStaysCommand struct {
	// Today defaults to the handler clock when zero.
	Today time.Time `validate:"-"`
}

func (c CompleteStaysCommand) Key() string { return completeStaysKey }

type CompleteStaysResult struct {
	Completed []string `json:"completed"`
}

// CompleteStaysHandler closes confirmed stays whose checkout has passed, one
// property at a time. A failing property is logged and skipped.
type CompleteStaysHandler struct {
	Calendars *support.CalendarWriter
	Clock     support.Clock
	Logger    *slog.Logger
}

func (h *CompleteStaysHandler) Handle(ctx context.Context, cmd CompleteStaysCommand) (*CompleteStaysResult, error) {
	today := cmd.Today
	if today.IsZero() {
		if h.Clock != nil {
			today = h.Clock()
		} else {
			today = support.SystemClock()
		}
	}
	today = daterange.Day(today)
	ids, err := h.Calendars.Calendars.PropertyIDs(ctx)
	if err != nil {
		return nil, err
	}
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	res := &CompleteStaysResult{Completed: []string{}}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		var done []domainbooking.BookingID
		_, err := h.Calendars.Update(ctx, id, func(cal *availability.Calendar) error {
			done = cal.CompleteStays(today)
			if len(done) == 0 {
				return support.ErrUnchanged
			}
			return nil
		})
		if err != nil {
			logger.ErrorContext(ctx, "complete stays failed", "property_id", id, "error", err)
			continue
		}
		for _, b := range done {
			res.Completed = append(res.Completed, string(b))
		}
	}
	if len(res.Completed) > 0 {
		logger.InfoContext(ctx, "stays completed", "count", len(res.Completed))
	}
	return res, nil
}
