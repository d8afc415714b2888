package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"stayengine/internal/app/dto"
	"stayengine/internal/app/handlers/support"
	"stayengine/internal/domain/availability"
	domainbooking "stayengine/internal/domain/booking"
	"stayengine/internal/domain/listings"
	"stayengine/internal/domain/shared/money"
)

const (
	confirmBookingKey = "booking.confirm"
	cancelBookingKey  = "booking.cancel"
	recordPaymentKey  = "booking.record_payment"
)

type ConfirmBookingCommand struct {
	BookingID string `validate:"required"`
	// Actor is optional; the zero value confirms on behalf of the system.
	Actor domainbooking.Actor `validate:"-"`
}

func (c ConfirmBookingCommand) Key() string { return confirmBookingKey }

type CancelBookingCommand struct {
	BookingID string              `validate:"required"`
	Actor     domainbooking.Actor `validate:"-"`
	Reason    string              `validate:"max=500"`
}

func (c CancelBookingCommand) Key() string { return cancelBookingKey }

type RecordPaymentCommand struct {
	BookingID string      `validate:"required"`
	Amount    money.Money `validate:"-"`
}

func (c RecordPaymentCommand) Key() string { return recordPaymentKey }

// TransitionHandler drives booking status changes through the calendar writer.
type TransitionHandler struct {
	Catalog   listings.Catalog
	Calendars *support.CalendarWriter
	Clock     support.Clock
	Logger    *slog.Logger
}

func (h *TransitionHandler) Confirm(ctx context.Context, cmd ConfirmBookingCommand) (*dto.Booking, error) {
	actor := cmd.Actor
	if actor.Role == "" {
		actor = domainbooking.System
	}
	return h.apply(ctx, domainbooking.BookingID(cmd.BookingID), func(b *domainbooking.Booking, p *listings.Property, now time.Time) error {
		if !b.MayConfirm(actor, p.Host) {
			return fmt.Errorf("%w: %s may not confirm %s", domainbooking.ErrForbidden, actor.ID, b.ID)
		}
		return b.Confirm(now)
	})
}

func (h *TransitionHandler) Cancel(ctx context.Context, cmd CancelBookingCommand) (*dto.Booking, error) {
	if !cmd.Actor.Valid() {
		return nil, fmt.Errorf("%w: actor required", domainbooking.ErrForbidden)
	}
	return h.apply(ctx, domainbooking.BookingID(cmd.BookingID), func(b *domainbooking.Booking, p *listings.Property, now time.Time) error {
		if !b.MayCancel(cmd.Actor, p.Host) {
			return fmt.Errorf("%w: %s may not cancel %s", domainbooking.ErrForbidden, cmd.Actor.ID, b.ID)
		}
		return b.Cancel(cmd.Actor, cmd.Reason, now)
	})
}

func (h *TransitionHandler) RecordPayment(ctx context.Context, cmd RecordPaymentCommand) (*dto.Booking, error) {
	return h.apply(ctx, domainbooking.BookingID(cmd.BookingID), func(b *domainbooking.Booking, _ *listings.Property, now time.Time) error {
		return b.RecordPayment(cmd.Amount, now)
	})
}

func (h *TransitionHandler) apply(ctx context.Context, id domainbooking.BookingID, change func(*domainbooking.Booking, *listings.Property, time.Time) error) (*dto.Booking, error) {
	propertyID, err := h.Calendars.Calendars.PropertyOf(ctx, id)
	if err != nil {
		return nil, err
	}
	property, err := h.Catalog.Property(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	now := h.now()
	var updated *domainbooking.Booking
	_, err = h.Calendars.Update(ctx, propertyID, func(cal *availability.Calendar) error {
		b, err := cal.Booking(id)
		if err != nil {
			return err
		}
		if err := change(b, property, now); err != nil {
			return err
		}
		updated = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	h.logger().InfoContext(ctx, "booking updated", "booking_id", updated.ID, "property_id", propertyID, "status", updated.Status)
	return dto.MapBooking(updated), nil
}

func (h *TransitionHandler) now() time.Time {
	if h.Clock != nil {
		return h.Clock()
	}
	return support.SystemClock()
}

func (h *TransitionHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
