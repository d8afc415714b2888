package dto

import (
	"time"

	domainbooking "stayengine/internal/domain/booking"
	"stayengine/internal/domain/shared/daterange"
	"stayengine/internal/domain/shared/money"
)

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type ActorDTO struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

type Booking struct {
	ID           string         `json:"id"`
	PropertyID   string         `json:"property_id"`
	GuestID      string         `json:"guest_id"`
	CheckIn      string         `json:"check_in"`
	CheckOut     string         `json:"check_out"`
	Nights       int            `json:"nights"`
	Guests       int            `json:"guests"`
	Status       string         `json:"status"`
	Price        PriceBreakdown `json:"price"`
	Total        MoneyDTO       `json:"total"`
	Paid         MoneyDTO       `json:"paid"`
	CancelledBy  *ActorDTO      `json:"cancelled_by,omitempty"`
	CancelReason string         `json:"cancel_reason,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{Amount: value.Amount, Currency: value.Currency}
}

func FormatDay(t time.Time) string {
	return t.UTC().Format(daterange.DayLayout)
}

func MapBooking(b *domainbooking.Booking) *Booking {
	out := &Booking{
		ID:           string(b.ID),
		PropertyID:   string(b.PropertyID),
		GuestID:      b.GuestID,
		CheckIn:      FormatDay(b.Range.CheckIn),
		CheckOut:     FormatDay(b.Range.CheckOut),
		Nights:       b.Range.Nights(),
		Guests:       b.Guests,
		Status:       string(b.Status),
		Price:        MapPriceBreakdown(b.Price),
		Total:        MapMoney(b.Price.Total),
		Paid:         MapMoney(b.PaidAmount),
		CancelReason: b.CancelReason,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
	if b.CancelledBy != nil {
		out.CancelledBy = &ActorDTO{ID: b.CancelledBy.ID, Role: string(b.CancelledBy.Role)}
	}
	return out
}
