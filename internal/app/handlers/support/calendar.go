package support

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"stayengine/internal/app/locks"
	"stayengine/internal/app/outbox"
	"stayengine/internal/domain/availability"
	"stayengine/internal/domain/listings"
)

// ErrUnchanged tells CalendarWriter.Update that the mutation found nothing to
// do; the snapshot is returned without saving.
var ErrUnchanged = errors.New("support: calendar unchanged")

const defaultMaxAttempts = 3

// Clock returns the current instant; handlers derive "today" from it.
type Clock func() time.Time

func SystemClock() time.Time { return time.Now().UTC() }

// CalendarWriter is the only path that mutates a property calendar. Each update
// holds the property lock, reloads a snapshot, applies the mutation and saves
// it with a version check, retrying when another process won the race.
type CalendarWriter struct {
	Calendars   availability.Repository
	Locks       *locks.Keyed
	Outbox      outbox.Outbox
	Encoder     outbox.EventEncoder
	Logger      *slog.Logger
	MaxAttempts int
	Backoff     time.Duration
}

func (w *CalendarWriter) Update(ctx context.Context, id listings.PropertyID, mutate func(cal *availability.Calendar) error) (*availability.Calendar, error) {
	unlock, err := w.Locks.Lock(ctx, string(id))
	if err != nil {
		return nil, err
	}
	defer unlock()

	attempts := w.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	for attempt := 1; ; attempt++ {
		cal, err := w.Calendars.Calendar(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := mutate(cal); err != nil {
			if errors.Is(err, ErrUnchanged) {
				return cal, nil
			}
			w.publish(ctx, cal)
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err = w.Calendars.Save(ctx, cal)
		if err == nil {
			w.publish(ctx, cal)
			return cal, nil
		}
		if !errors.Is(err, availability.ErrConcurrentUpdate) || attempt >= attempts {
			return nil, err
		}
		w.logger().WarnContext(ctx, "calendar version moved, retrying", "property_id", id, "attempt", attempt)
		if w.Backoff > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(w.Backoff * time.Duration(attempt)):
			}
		}
	}
}

// Snapshot reads a calendar without taking the lock.
func (w *CalendarWriter) Snapshot(ctx context.Context, id listings.PropertyID) (*availability.Calendar, error) {
	return w.Calendars.Calendar(ctx, id)
}

// publish writes pending events to the outbox. Rejected attempts still publish
// what they recorded, such as calendar.overbooking_prevented.
func (w *CalendarWriter) publish(ctx context.Context, cal *availability.Calendar) {
	evs := cal.DrainEvents()
	if len(evs) == 0 || w.Outbox == nil {
		return
	}
	if err := outbox.RecordDomainEvents(ctx, w.Outbox, w.Encoder, evs); err != nil {
		w.logger().ErrorContext(ctx, "outbox write failed", "property_id", cal.PropertyID, "events", len(evs), "error", err)
	}
}

func (w *CalendarWriter) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}
