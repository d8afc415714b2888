package availability

import (
	"time"

	"stayengine/internal/domain/booking"
	"stayengine/internal/domain/listings"
	"stayengine/internal/domain/shared/daterange"
	"stayengine/internal/domain/shared/money"
)

type MonthlyStats struct {
	PropertyID    listings.PropertyID `json:"property_id"`
	Year          int                 `json:"year"`
	Month         time.Month          `json:"month"`
	TotalEarnings money.Money         `json:"total_earnings"`
	OccupancyRate float64             `json:"occupancy_rate"`
	BookedNights  int                 `json:"booked_nights"`
	DaysInMonth   int                 `json:"days_in_month"`
	BookingCount  int                 `json:"booking_count"`
}

// ComputeMonthlyStats sums confirmed and completed bookings. Nights are counted
// where they fall inside the month; earnings and count go to the check-in month.
func ComputeMonthlyStats(cal *Calendar, currency string, year int, month time.Month) (MonthlyStats, error) {
	if year < 1 || month < time.January || month > time.December {
		return MonthlyStats{}, ErrInvalidMonth
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	monthRange := daterange.DateRange{CheckIn: first, CheckOut: first.AddDate(0, 1, 0)}
	stats := MonthlyStats{
		PropertyID:    cal.PropertyID,
		Year:          year,
		Month:         month,
		TotalEarnings: money.Zero(currency),
		DaysInMonth:   monthRange.Nights(),
	}
	for _, b := range cal.Bookings {
		if b.Status != booking.StatusConfirmed && b.Status != booking.StatusCompleted {
			continue
		}
		if shared, ok := b.Range.Intersect(monthRange); ok {
			stats.BookedNights += shared.Nights()
		}
		if !monthRange.ContainsDay(b.Range.CheckIn) {
			continue
		}
		total, err := stats.TotalEarnings.Add(b.Price.Total)
		if err != nil {
			return MonthlyStats{}, err
		}
		stats.TotalEarnings = total
		stats.BookingCount++
	}
	stats.OccupancyRate = float64(stats.BookedNights) / float64(stats.DaysInMonth)
	return stats, nil
}
