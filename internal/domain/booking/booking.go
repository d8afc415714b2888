package booking

import (
	"errors"
	"fmt"
	"time"

	"stayengine/internal/domain/listings"
	"stayengine/internal/domain/pricing"
	"stayengine/internal/domain/shared/daterange"
	"stayengine/internal/domain/shared/events"
	"stayengine/internal/domain/shared/money"
)

var (
	ErrInvalidGuests     = errors.New("booking: guests count must be positive")
	ErrInvalidTransition = errors.New("booking: invalid state transition")
	ErrNotFound          = errors.New("booking: not found")
	ErrForbidden         = errors.New("booking: actor not allowed")
	ErrStayNotFinished   = errors.New("booking: checkout date has not passed")
	ErrGuestRequired     = errors.New("booking: guest id required")
)

type BookingID string

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

// Active statuses hold dates on the calendar.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// InvalidTransitionError names the attempted action and the state it was refused in.
type InvalidTransitionError struct {
	BookingID BookingID
	From      Status
	Action    string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("booking: cannot %s booking %s in state %s", e.Action, e.BookingID, e.From)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

type Booking struct {
	ID                   BookingID              `json:"id" bson:"id"`
	PropertyID           listings.PropertyID    `json:"property_id" bson:"property_id"`
	GuestID              string                 `json:"guest_id" bson:"guest_id"`
	Range                daterange.DateRange    `json:"range" bson:"range"`
	Guests               int                    `json:"guests" bson:"guests"`
	Status               Status                 `json:"status" bson:"status"`
	Price                pricing.PriceBreakdown `json:"price" bson:"price"`
	PaidAmount           money.Money            `json:"paid_amount" bson:"paid_amount"`
	CancelledBy          *Actor                 `json:"cancelled_by,omitempty" bson:"cancelled_by,omitempty"`
	CancelReason         string                 `json:"cancel_reason,omitempty" bson:"cancel_reason,omitempty"`
	CreatedAt            time.Time              `json:"created_at" bson:"created_at"`
	UpdatedAt            time.Time              `json:"updated_at" bson:"updated_at"`
	Version              int64                  `json:"version" bson:"version"`
	events.EventRecorder `json:"-" bson:"-"`
}

type CreateParams struct {
	ID          BookingID
	PropertyID  listings.PropertyID
	GuestID     string
	Range       daterange.DateRange
	Guests      int
	Price       pricing.PriceBreakdown
	InstantBook bool
	CreatedAt   time.Time
}

func NewBooking(params CreateParams) (*Booking, error) {
	if params.Guests <= 0 {
		return nil, ErrInvalidGuests
	}
	if params.GuestID == "" {
		return nil, ErrGuestRequired
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	if err := params.Price.Validate(); err != nil {
		return nil, err
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:         params.ID,
		PropertyID: params.PropertyID,
		GuestID:    params.GuestID,
		Range:      params.Range,
		Guests:     params.Guests,
		Status:     StatusPending,
		Price:      params.Price,
		PaidAmount: money.Zero(params.Price.Total.Currency),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	b.Record(BookingRequested{
		BookingID:   b.ID,
		PropertyID:  b.PropertyID,
		GuestID:     b.GuestID,
		Range:       b.Range,
		GuestsCount: b.Guests,
		Total:       b.Price.Total,
		At:          now,
	})
	if params.InstantBook {
		b.confirm(now)
	}
	return b, nil
}

func (b *Booking) Confirm(now time.Time) error {
	if b.Status != StatusPending {
		return &InvalidTransitionError{BookingID: b.ID, From: b.Status, Action: "confirm"}
	}
	b.confirm(now)
	return nil
}

func (b *Booking) confirm(now time.Time) {
	b.Status = StatusConfirmed
	b.UpdatedAt = now.UTC()
	b.Record(BookingConfirmed{BookingID: b.ID, PropertyID: b.PropertyID, Range: b.Range, Total: b.Price.Total, At: b.UpdatedAt})
}

// Cancel keeps the record for audit; only the status changes.
func (b *Booking) Cancel(by Actor, reason string, now time.Time) error {
	if !b.Status.Active() {
		return &InvalidTransitionError{BookingID: b.ID, From: b.Status, Action: "cancel"}
	}
	prev := b.Status
	actor := by
	b.Status = StatusCancelled
	b.CancelledBy = &actor
	b.CancelReason = reason
	b.UpdatedAt = now.UTC()
	b.Record(BookingCancelled{
		BookingID:  b.ID,
		PropertyID: b.PropertyID,
		Range:      b.Range,
		From:       prev,
		By:         actor,
		Reason:     reason,
		At:         b.UpdatedAt,
	})
	return nil
}

// Complete closes a confirmed stay once today has reached the checkout day.
func (b *Booking) Complete(today time.Time) error {
	if b.Status != StatusConfirmed {
		return &InvalidTransitionError{BookingID: b.ID, From: b.Status, Action: "complete"}
	}
	if daterange.Day(today).Before(b.Range.CheckOut) {
		return ErrStayNotFinished
	}
	b.Status = StatusCompleted
	b.UpdatedAt = today.UTC()
	b.Record(BookingCompleted{BookingID: b.ID, PropertyID: b.PropertyID, Total: b.Price.Total, At: b.UpdatedAt})
	return nil
}

// RecordPayment stores the captured amount reported by the payment collaborator.
func (b *Booking) RecordPayment(amount money.Money, now time.Time) error {
	if b.Status.Terminal() {
		return &InvalidTransitionError{BookingID: b.ID, From: b.Status, Action: "record payment for"}
	}
	if amount.IsNegative() {
		return fmt.Errorf("booking: negative payment %s", amount)
	}
	if amount.Currency != b.Price.Total.Currency {
		return money.ErrCurrencyMismatch
	}
	b.PaidAmount = amount
	b.UpdatedAt = now.UTC()
	return nil
}

func (b *Booking) IsActive() bool {
	return b.Status.Active()
}

// Clone copies the booking without pending events.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	c := *b
	c.EventRecorder = events.EventRecorder{}
	if b.CancelledBy != nil {
		actor := *b.CancelledBy
		c.CancelledBy = &actor
	}
	return &c
}
