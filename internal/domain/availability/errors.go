package availability

import (
	"errors"
	"fmt"
	"time"

	"stayengine/internal/domain/booking"
	"stayengine/internal/domain/shared/daterange"
)

var (
	ErrPastDate         = errors.New("availability: check-in is in the past")
	ErrStayLength       = errors.New("availability: stay length outside allowed bounds")
	ErrAdvanceBooking   = errors.New("availability: check-in beyond advance booking window")
	ErrCapacity         = errors.New("availability: guest count exceeds capacity")
	ErrDateConflict     = errors.New("availability: dates already booked")
	ErrDateBlocked      = errors.New("availability: dates blocked by host")
	ErrConflict         = errors.New("availability: block conflicts with calendar")
	ErrBlockNotFound    = errors.New("availability: no block in range")
	ErrConcurrentUpdate = errors.New("availability: calendar modified concurrently")
	ErrInvalidMonth     = errors.New("availability: invalid year or month")
)

type PastDateError struct {
	CheckIn time.Time
	Today   time.Time
}

func (e *PastDateError) Error() string {
	return fmt.Sprintf("availability: check-in %s is before today %s",
		e.CheckIn.Format(daterange.DayLayout), e.Today.Format(daterange.DayLayout))
}

func (e *PastDateError) Unwrap() error { return ErrPastDate }

// StayLengthError carries the violated bounds; Max 0 means no upper bound.
type StayLengthError struct {
	Nights int
	Min    int
	Max    int
}

func (e *StayLengthError) Error() string {
	if e.Max > 0 {
		return fmt.Sprintf("availability: %d nights outside allowed %d-%d", e.Nights, e.Min, e.Max)
	}
	return fmt.Sprintf("availability: %d nights below minimum %d", e.Nights, e.Min)
}

func (e *StayLengthError) Unwrap() error { return ErrStayLength }

type AdvanceBookingError struct {
	CheckIn time.Time
	Latest  time.Time
	Days    int
}

func (e *AdvanceBookingError) Error() string {
	return fmt.Sprintf("availability: check-in %s is after %s (%d days ahead)",
		e.CheckIn.Format(daterange.DayLayout), e.Latest.Format(daterange.DayLayout), e.Days)
}

func (e *AdvanceBookingError) Unwrap() error { return ErrAdvanceBooking }

type CapacityError struct {
	Guests    int
	MaxGuests int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("availability: %d guests exceed capacity of %d", e.Guests, e.MaxGuests)
}

func (e *CapacityError) Unwrap() error { return ErrCapacity }

type DateConflictError struct {
	Requested   daterange.DateRange
	Conflicting daterange.DateRange
	BookingID   booking.BookingID
}

func (e *DateConflictError) Error() string {
	return fmt.Sprintf("availability: %s overlaps booked range %s", e.Requested, e.Conflicting)
}

func (e *DateConflictError) Unwrap() error { return ErrDateConflict }

type DateBlockedError struct {
	Requested daterange.DateRange
	Blocked   daterange.DateRange
	Reason    string
}

func (e *DateBlockedError) Error() string {
	return fmt.Sprintf("availability: %s overlaps blocked range %s (%s)", e.Requested, e.Blocked, e.Reason)
}

func (e *DateBlockedError) Unwrap() error { return ErrDateBlocked }

// ConflictError rejects a block that would cover a booking or a differently reasoned block.
type ConflictError struct {
	Requested   daterange.DateRange
	Conflicting daterange.DateRange
	BookingID   booking.BookingID
	Reason      string
}

func (e *ConflictError) Error() string {
	if e.BookingID != "" {
		return fmt.Sprintf("availability: block %s overlaps booking %s at %s", e.Requested, e.BookingID, e.Conflicting)
	}
	return fmt.Sprintf("availability: block %s overlaps %q block %s", e.Requested, e.Reason, e.Conflicting)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

type BlockNotFoundError struct {
	Range daterange.DateRange
}

func (e *BlockNotFoundError) Error() string {
	return fmt.Sprintf("availability: no block overlaps %s", e.Range)
}

func (e *BlockNotFoundError) Unwrap() error { return ErrBlockNotFound }
