package dto

import (
	"time"

	"stayengine/internal/domain/availability"
)

type Availability struct {
	PropertyID  string `json:"property_id"`
	CheckIn     string `json:"check_in"`
	CheckOut    string `json:"check_out"`
	Nights      int    `json:"nights"`
	Guests      int    `json:"guests"`
	Available   bool   `json:"available"`
	InstantBook bool   `json:"instant_book"`
}

type Block struct {
	PropertyID string    `json:"property_id"`
	CheckIn    string    `json:"start"`
	CheckOut   string    `json:"end"`
	Reason     string    `json:"reason"`
	CreatedBy  string    `json:"created_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type CalendarDay struct {
	Date          string   `json:"date"`
	InMonth       bool     `json:"in_month"`
	IsAvailable   bool     `json:"is_available"`
	Price         MoneyDTO `json:"price"`
	Status        string   `json:"status"`
	BookingID     string   `json:"booking_id,omitempty"`
	GuestLabel    string   `json:"guest_label,omitempty"`
	BlockReason   string   `json:"block_reason,omitempty"`
	IsCheckInDay  bool     `json:"is_check_in_day"`
	IsCheckOutDay bool     `json:"is_check_out_day"`
}

type CalendarMonth struct {
	PropertyID string        `json:"property_id"`
	Year       int           `json:"year"`
	Month      int           `json:"month"`
	Days       []CalendarDay `json:"days"`
	Blocks     []Block       `json:"blocks"`
}

type MonthlyStats struct {
	PropertyID    string   `json:"property_id"`
	Year          int      `json:"year"`
	Month         int      `json:"month"`
	TotalEarnings MoneyDTO `json:"total_earnings"`
	OccupancyRate float64  `json:"occupancy_rate"`
	BookedNights  int      `json:"booked_nights"`
	DaysInMonth   int      `json:"days_in_month"`
	BookingCount  int      `json:"booking_count"`
}

func MapAvailability(r availability.Result) *Availability {
	return &Availability{
		PropertyID:  string(r.PropertyID),
		CheckIn:     FormatDay(r.Range.CheckIn),
		CheckOut:    FormatDay(r.Range.CheckOut),
		Nights:      r.Nights,
		Guests:      r.Guests,
		Available:   r.Available,
		InstantBook: r.InstantBook,
	}
}

func MapBlock(propertyID string, b availability.Block) Block {
	return Block{
		PropertyID: propertyID,
		CheckIn:    FormatDay(b.Range.CheckIn),
		CheckOut:   FormatDay(b.Range.CheckOut),
		Reason:     b.Reason,
		CreatedBy:  string(b.CreatedBy),
		CreatedAt:  b.CreatedAt,
	}
}

func MapCalendarMonth(cal *availability.Calendar, year int, month time.Month, cells []availability.DayCell) *CalendarMonth {
	out := &CalendarMonth{
		PropertyID: string(cal.PropertyID),
		Year:       year,
		Month:      int(month),
		Days:       make([]CalendarDay, 0, len(cells)),
		Blocks:     make([]Block, 0, len(cal.Blocks)),
	}
	for _, c := range cells {
		out.Days = append(out.Days, CalendarDay{
			Date:          FormatDay(c.Date),
			InMonth:       c.InMonth,
			IsAvailable:   c.IsAvailable,
			Price:         MapMoney(c.Price),
			Status:        string(c.Status),
			BookingID:     string(c.BookingID),
			GuestLabel:    c.GuestLabel,
			BlockReason:   c.BlockReason,
			IsCheckInDay:  c.IsCheckInDay,
			IsCheckOutDay: c.IsCheckOutDay,
		})
	}
	for _, b := range cal.Blocks {
		out.Blocks = append(out.Blocks, MapBlock(string(cal.PropertyID), b))
	}
	return out
}

func MapMonthlyStats(s availability.MonthlyStats) *MonthlyStats {
	return &MonthlyStats{
		PropertyID:    string(s.PropertyID),
		Year:          s.Year,
		Month:         int(s.Month),
		TotalEarnings: MapMoney(s.TotalEarnings),
		OccupancyRate: s.OccupancyRate,
		BookedNights:  s.BookedNights,
		DaysInMonth:   s.DaysInMonth,
		BookingCount:  s.BookingCount,
	}
}
