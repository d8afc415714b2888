package availability

import (
	"time"

	"stayengine/internal/domain/booking"
	"stayengine/internal/domain/listings"
	"stayengine/internal/domain/shared/daterange"
)

type CalendarBlocked struct {
	PropertyID string              `json:"property_id"`
	Range      daterange.DateRange `json:"range"`
	Reason     string              `json:"reason"`
	Reference  string              `json:"reference,omitempty"`
	At         time.Time           `json:"at"`
}

func (e CalendarBlocked) EventName() string     { return "calendar.blocked" }
func (e CalendarBlocked) AggregateID() string   { return e.PropertyID }
func (e CalendarBlocked) OccurredAt() time.Time { return e.At }

type CalendarReleased struct {
	PropertyID string              `json:"property_id"`
	Range      daterange.DateRange `json:"range"`
	Reason     string              `json:"reason"`
	At         time.Time           `json:"at"`
}

func (e CalendarReleased) EventName() string     { return "calendar.released" }
func (e CalendarReleased) AggregateID() string   { return e.PropertyID }
func (e CalendarReleased) OccurredAt() time.Time { return e.At }

type CalendarOverbookingPrevented struct {
	PropertyID  string              `json:"property_id"`
	Range       daterange.DateRange `json:"range"`
	Conflicting booking.BookingID   `json:"conflicting_booking"`
	At          time.Time           `json:"at"`
}

func (e CalendarOverbookingPrevented) EventName() string     { return "calendar.overbooking_prevented" }
func (e CalendarOverbookingPrevented) AggregateID() string   { return e.PropertyID }
func (e CalendarOverbookingPrevented) OccurredAt() time.Time { return e.At }

func CalendarBlockedEvent(id listings.PropertyID, r daterange.DateRange, reason, ref string, at time.Time) CalendarBlocked {
	return CalendarBlocked{PropertyID: string(id), Range: r, Reason: reason, Reference: ref, At: at.UTC()}
}

func CalendarReleasedEvent(id listings.PropertyID, r daterange.DateRange, reason string, at time.Time) CalendarReleased {
	return CalendarReleased{PropertyID: string(id), Range: r, Reason: reason, At: at.UTC()}
}

func CalendarOverbookingPreventedEvent(id listings.PropertyID, r daterange.DateRange, conflicting booking.BookingID, at time.Time) CalendarOverbookingPrevented {
	return CalendarOverbookingPrevented{PropertyID: string(id), Range: r, Conflicting: conflicting, At: at.UTC()}
}
