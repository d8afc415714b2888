package availability

import (
	"time"

	"stayengine/internal/domain/booking"
	"stayengine/internal/domain/listings"
	"stayengine/internal/domain/shared/money"
)

// GridDays is six full weeks, enough for any month starting on any weekday.
const GridDays = 42

type CellStatus string

const (
	CellAvailable CellStatus = "available"
	CellPending   CellStatus = "pending"
	CellConfirmed CellStatus = "confirmed"
	CellBlocked   CellStatus = "blocked"
)

type DayCell struct {
	Date          time.Time         `json:"date"`
	InMonth       bool              `json:"in_month"`
	IsAvailable   bool              `json:"is_available"`
	Price         money.Money       `json:"price"`
	BookingID     booking.BookingID `json:"booking_id,omitempty"`
	GuestLabel    string            `json:"guest_label,omitempty"`
	BlockReason   string            `json:"block_reason,omitempty"`
	Status        CellStatus        `json:"status"`
	IsCheckInDay  bool              `json:"is_check_in_day"`
	IsCheckOutDay bool              `json:"is_check_out_day"`
}

// BuildMonth projects the calendar onto a Sunday-first 42-day grid around the
// month. It only reads cal.
func BuildMonth(cal *Calendar, cfg listings.PricingConfig, year int, month time.Month) ([]DayCell, error) {
	if year < 1 || month < time.January || month > time.December {
		return nil, ErrInvalidMonth
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	start := first.AddDate(0, 0, -int(first.Weekday()))

	var active []*booking.Booking
	for _, b := range cal.Bookings {
		if b.IsActive() {
			active = append(active, b)
		}
	}

	cells := make([]DayCell, 0, GridDays)
	for i := 0; i < GridDays; i++ {
		day := start.AddDate(0, 0, i)
		cell := DayCell{Date: day, InMonth: day.Month() == month, Price: money.Zero(cfg.Currency())}

		var covering *booking.Booking
		for _, b := range active {
			if b.Range.CheckIn.Equal(day) {
				cell.IsCheckInDay = true
			}
			if b.Range.CheckOut.Equal(day) {
				cell.IsCheckOutDay = true
			}
			if covering == nil && b.Range.ContainsDay(day) {
				covering = b
			}
		}

		switch {
		case covering != nil:
			cell.BookingID = covering.ID
			cell.GuestLabel = covering.GuestID
			cell.Status = CellPending
			if covering.Status == booking.StatusConfirmed {
				cell.Status = CellConfirmed
			}
		default:
			if blk, ok := blockOn(cal.Blocks, day); ok {
				cell.Status = CellBlocked
				cell.BlockReason = blk.Reason
			} else {
				cell.Status = CellAvailable
				cell.IsAvailable = true
				cell.Price = cfg.BasePricePerNight
			}
		}
		cells = append(cells, cell)
	}
	return cells, nil
}

// HideGuests strips booking and guest identity from the cells. Status and
// price stay as built.
func HideGuests(cells []DayCell) {
	for i := range cells {
		cells[i].BookingID = ""
		cells[i].GuestLabel = ""
	}
}

func blockOn(blocks []Block, day time.Time) (Block, bool) {
	for _, blk := range blocks {
		if blk.Range.ContainsDay(day) {
			return blk, true
		}
	}
	return Block{}, false
}
