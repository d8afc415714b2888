package booking

import (
	"context"
	"fmt"

	"stayengine/internal/app/dto"
	"stayengine/internal/app/queries"
	"stayengine/internal/domain/availability"
	domainbooking "stayengine/internal/domain/booking"
	"stayengine/internal/domain/listings"
)

const getBookingKey = "booking.get"

type GetBookingQuery struct {
	BookingID string `validate:"required"`
	// Actor limits visibility to the guest, the host and the system.
	Actor domainbooking.Actor `validate:"-"`
}

func (q GetBookingQuery) Key() string { return getBookingKey }

type GetBookingHandler struct {
	Calendars availability.Repository
	Catalog   listings.Catalog
}

func (h *GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (*dto.Booking, error) {
	id := domainbooking.BookingID(q.BookingID)
	propertyID, err := h.Calendars.PropertyOf(ctx, id)
	if err != nil {
		return nil, err
	}
	cal, err := h.Calendars.Calendar(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	b, err := cal.Booking(id)
	if err != nil {
		return nil, err
	}
	property, err := h.Catalog.Property(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if !b.MayView(q.Actor, property.Host) {
		return nil, fmt.Errorf("%w: %s may not view %s", domainbooking.ErrForbidden, q.Actor.ID, id)
	}
	return dto.MapBooking(b), nil
}

var _ queries.Handler[GetBookingQuery, *dto.Booking] = (*GetBookingHandler)(nil)
