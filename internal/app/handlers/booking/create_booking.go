package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"stayengine/internal/app/commands"
	"stayengine/internal/app/dto"
	"stayengine/internal/app/handlers/support"
	"stayengine/internal/app/middleware"
	"stayengine/internal/domain/availability"
	domainbooking "stayengine/internal/domain/booking"
	"stayengine/internal/domain/listings"
	"stayengine/internal/domain/pricing"
	"stayengine/internal/domain/shared/daterange"
)

const createBookingKey = "booking.create"

// bookingNamespace seeds ids derived from idempotency keys.
var bookingNamespace = uuid.MustParse("6f1c3f1e-4b8a-5d3e-9c6a-2f7b8e0d4a91")

type CreateBookingCommand struct {
	PropertyID string              `validate:"required"`
	GuestID    string              `validate:"required"`
	Range      daterange.DateRange `validate:"-"`
	Guests     int                 `validate:"gte=1"`
	ClientKey  string              `validate:"max=200"`
}

func (c CreateBookingCommand) Key() string { return createBookingKey }

func (c CreateBookingCommand) IdempotencyKey() string {
	if c.ClientKey == "" {
		return ""
	}
	return createBookingKey + ":" + c.PropertyID + ":" + c.GuestID + ":" + c.ClientKey
}

func (c CreateBookingCommand) ResultPrototype() any { return &dto.Booking{} }

// BookingID is random without a client key and stable with one, so a retried
// request that slips past the result cache still lands on the same booking.
func (c CreateBookingCommand) BookingID() domainbooking.BookingID {
	if c.ClientKey == "" {
		return domainbooking.BookingID(uuid.NewString())
	}
	return domainbooking.BookingID(uuid.NewSHA1(bookingNamespace, []byte(c.IdempotencyKey())).String())
}

type CreateBookingHandler struct {
	Catalog   listings.Catalog
	Calendars *support.CalendarWriter
	Clock     support.Clock
	Logger    *slog.Logger
}

func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (*dto.Booking, error) {
	if err := cmd.Range.Validate(); err != nil {
		return nil, err
	}
	property, err := h.Catalog.Property(ctx, listings.PropertyID(cmd.PropertyID))
	if err != nil {
		return nil, err
	}
	now := h.now()
	id := cmd.BookingID()

	snapshot, err := h.Calendars.Snapshot(ctx, property.ID)
	if err != nil {
		return nil, err
	}
	if existing, err := snapshot.Booking(id); err == nil {
		if err := sameRequest(existing, cmd); err != nil {
			return nil, err
		}
		return dto.MapBooking(existing), nil
	}
	if _, err := availability.Check(snapshot, property, cmd.Range, cmd.Guests, now); err != nil {
		return nil, err
	}
	price, err := pricing.Compute(cmd.Range, property.Pricing)
	if err != nil {
		return nil, err
	}

	var created *domainbooking.Booking
	_, err = h.Calendars.Update(ctx, property.ID, func(cal *availability.Calendar) error {
		if existing, err := cal.Booking(id); err == nil {
			if err := sameRequest(existing, cmd); err != nil {
				return err
			}
			created = existing
			return support.ErrUnchanged
		}
		if _, err := availability.Check(cal, property, cmd.Range, cmd.Guests, now); err != nil {
			var conflict *availability.DateConflictError
			if errors.As(err, &conflict) {
				cal.Record(availability.CalendarOverbookingPreventedEvent(property.ID, cmd.Range, conflict.BookingID, now))
			}
			return err
		}
		b, err := domainbooking.NewBooking(domainbooking.CreateParams{
			ID:          id,
			PropertyID:  property.ID,
			GuestID:     cmd.GuestID,
			Range:       cmd.Range,
			Guests:      cmd.Guests,
			Price:       price,
			InstantBook: property.Pricing.InstantBookEnabled,
			CreatedAt:   now,
		})
		if err != nil {
			return err
		}
		if err := cal.Reserve(b, now); err != nil {
			return err
		}
		created = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	h.logger().InfoContext(ctx, "booking created",
		"booking_id", created.ID,
		"property_id", created.PropertyID,
		"range", created.Range.String(),
		"status", created.Status,
		"total", created.Price.Total.String(),
	)
	return dto.MapBooking(created), nil
}

// sameRequest guards replays that outlive the cached result: a client key that
// already produced a booking may only come back with the same stay.
func sameRequest(existing *domainbooking.Booking, cmd CreateBookingCommand) error {
	sameStay := existing.Range.CheckIn.Equal(cmd.Range.CheckIn) && existing.Range.CheckOut.Equal(cmd.Range.CheckOut)
	if !sameStay || existing.Guests != cmd.Guests {
		return fmt.Errorf("%w: booking %s holds %s for %d guests", middleware.ErrIdempotencyKeyReused, existing.ID, existing.Range, existing.Guests)
	}
	return nil
}

func (h *CreateBookingHandler) now() time.Time {
	if h.Clock != nil {
		return h.Clock()
	}
	return support.SystemClock()
}

func (h *CreateBookingHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var _ commands.Handler[CreateBookingCommand, *dto.Booking] = (*CreateBookingHandler)(nil)
var _ middleware.IdempotentCommand = CreateBookingCommand{}
