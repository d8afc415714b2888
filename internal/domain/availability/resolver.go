package availability

import (
	"time"

	"stayengine/internal/domain/booking"
	"stayengine/internal/domain/listings"
	"stayengine/internal/domain/shared/daterange"
)

type Result struct {
	PropertyID  listings.PropertyID `json:"property_id"`
	Range       daterange.DateRange `json:"range"`
	Nights      int                 `json:"nights"`
	Guests      int                 `json:"guests"`
	Available   bool                `json:"available"`
	InstantBook bool                `json:"instant_book"`
}

// Check decides whether r can be booked for guests. Checks run in a fixed
// order and stop at the first failure, so a past request is never reported as
// booked.
func Check(cal *Calendar, p *listings.Property, r daterange.DateRange, guests int, today time.Time) (Result, error) {
	if err := r.Validate(); err != nil {
		return Result{}, err
	}
	today = daterange.Day(today)
	cfg := p.Pricing

	if r.CheckIn.Before(today) {
		return Result{}, &PastDateError{CheckIn: r.CheckIn, Today: today}
	}

	nights := r.Nights()
	if nights < cfg.MinNights() || (cfg.MaxStayNights > 0 && nights > cfg.MaxStayNights) {
		return Result{}, &StayLengthError{Nights: nights, Min: cfg.MinNights(), Max: cfg.MaxStayNights}
	}

	if cfg.AdvanceBookingDays > 0 {
		latest := today.AddDate(0, 0, cfg.AdvanceBookingDays)
		if r.CheckIn.After(latest) {
			return Result{}, &AdvanceBookingError{CheckIn: r.CheckIn, Latest: latest, Days: cfg.AdvanceBookingDays}
		}
	}

	if guests < 1 {
		return Result{}, booking.ErrInvalidGuests
	}
	if guests > p.MaxGuests {
		return Result{}, &CapacityError{Guests: guests, MaxGuests: p.MaxGuests}
	}

	if conflicts := cal.ActiveBookingsOverlapping(r); len(conflicts) > 0 {
		return Result{}, &DateConflictError{Requested: r, Conflicting: conflicts[0].Range, BookingID: conflicts[0].ID}
	}
	if blocks := cal.BlocksOverlapping(r); len(blocks) > 0 {
		return Result{}, &DateBlockedError{Requested: r, Blocked: blocks[0].Range, Reason: blocks[0].Reason}
	}

	return Result{
		PropertyID:  p.ID,
		Range:       r,
		Nights:      nights,
		Guests:      guests,
		Available:   true,
		InstantBook: cfg.InstantBookEnabled,
	}, nil
}
