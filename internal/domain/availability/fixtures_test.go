package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stayengine/internal/domain/booking"
	"stayengine/internal/domain/listings"
	"stayengine/internal/domain/pricing"
	"stayengine/internal/domain/shared/daterange"
	"stayengine/internal/domain/shared/money"
)

var today = time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)

func testProperty() *listings.Property {
	return &listings.Property{
		ID:        "prop-1",
		Host:      "host-1",
		MaxGuests: 4,
		Pricing: listings.PricingConfig{
			BasePricePerNight:  money.Must(50000, "AED"),
			CleaningFee:        money.Must(15000, "AED"),
			ServiceFeeRate:     money.MustRate("0.1"),
			TaxRate:            money.MustRate("0.05"),
			MinStayNights:      2,
			MaxStayNights:      30,
			AdvanceBookingDays: 365,
		},
	}
}

func rng(t *testing.T, in, out string) daterange.DateRange {
	t.Helper()
	r, err := daterange.Parse(in, out)
	require.NoError(t, err)
	return r
}

func addBooking(t *testing.T, cal *Calendar, id, in, out string, status booking.Status) *booking.Booking {
	t.Helper()
	r := rng(t, in, out)
	price, err := pricing.Compute(r, testProperty().Pricing)
	require.NoError(t, err)
	b, err := booking.NewBooking(booking.CreateParams{
		ID:         booking.BookingID(id),
		PropertyID: cal.PropertyID,
		GuestID:    "guest-" + id,
		Range:      r,
		Guests:     2,
		Price:      price,
		CreatedAt:  today,
	})
	require.NoError(t, err)
	require.NoError(t, cal.Reserve(b, today))
	switch status {
	case booking.StatusConfirmed:
		require.NoError(t, b.Confirm(today))
	case booking.StatusCancelled:
		require.NoError(t, b.Cancel(booking.System, "", today))
	case booking.StatusCompleted:
		require.NoError(t, b.Confirm(today))
		require.NoError(t, b.Complete(r.CheckOut))
	}
	return b
}
