package booking

import (
	"time"

	"stayengine/internal/domain/listings"
	"stayengine/internal/domain/shared/daterange"
	"stayengine/internal/domain/shared/money"
)

type BookingRequested struct {
	BookingID   BookingID           `json:"booking_id"`
	PropertyID  listings.PropertyID `json:"property_id"`
	GuestID     string              `json:"guest_id"`
	Range       daterange.DateRange `json:"range"`
	GuestsCount int                 `json:"guests"`
	Total       money.Money         `json:"total"`
	At          time.Time           `json:"at"`
}

func (e BookingRequested) EventName() string     { return "booking.requested" }
func (e BookingRequested) AggregateID() string   { return string(e.BookingID) }
func (e BookingRequested) OccurredAt() time.Time { return e.At }

type BookingConfirmed struct {
	BookingID  BookingID           `json:"booking_id"`
	PropertyID listings.PropertyID `json:"property_id"`
	Range      daterange.DateRange `json:"range"`
	Total      money.Money         `json:"total"`
	At         time.Time           `json:"at"`
}

func (e BookingConfirmed) EventName() string     { return "booking.confirmed" }
func (e BookingConfirmed) AggregateID() string   { return string(e.BookingID) }
func (e BookingConfirmed) OccurredAt() time.Time { return e.At }

type BookingCancelled struct {
	BookingID  BookingID           `json:"booking_id"`
	PropertyID listings.PropertyID `json:"property_id"`
	Range      daterange.DateRange `json:"range"`
	From       Status              `json:"from"`
	By         Actor               `json:"by"`
	Reason     string              `json:"reason,omitempty"`
	At         time.Time           `json:"at"`
}

func (e BookingCancelled) EventName() string     { return "booking.cancelled" }
func (e BookingCancelled) AggregateID() string   { return string(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }

type BookingCompleted struct {
	BookingID  BookingID           `json:"booking_id"`
	PropertyID listings.PropertyID `json:"property_id"`
	Total      money.Money         `json:"total"`
	At         time.Time           `json:"at"`
}

func (e BookingCompleted) EventName() string     { return "booking.completed" }
func (e BookingCompleted) AggregateID() string   { return string(e.BookingID) }
func (e BookingCompleted) OccurredAt() time.Time { return e.At }
