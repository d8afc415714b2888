package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayengine/internal/domain/booking"
)

func TestCheckScenarios(t *testing.T) {
	cal := NewCalendar("prop-1")
	addBooking(t, cal, "a", "2024-12-25", "2024-12-30", booking.StatusConfirmed)
	_, err := cal.AddBlock(rng(t, "2025-01-10", "2025-01-15"), "maintenance", "host-1", today)
	require.NoError(t, err)

	cases := []struct {
		name   string
		in     string
		out    string
		guests int
		want   error
	}{
		{"one night below min stay", "2025-02-25", "2025-02-26", 2, ErrStayLength},
		{"above max stay", "2025-02-01", "2025-03-15", 2, ErrStayLength},
		{"past date wins over conflict", "2024-11-28", "2024-12-27", 2, ErrPastDate},
		{"beyond advance window", "2026-01-10", "2026-01-15", 2, ErrAdvanceBooking},
		{"too many guests", "2025-02-01", "2025-02-05", 5, ErrCapacity},
		{"zero guests", "2025-02-01", "2025-02-05", 0, booking.ErrInvalidGuests},
		{"overlaps booking", "2024-12-28", "2025-01-02", 2, ErrDateConflict},
		{"overlaps block", "2025-01-12", "2025-01-14", 2, ErrDateBlocked},
		{"capacity before conflict", "2024-12-28", "2025-01-02", 9, ErrCapacity},
		{"available back to back", "2024-12-30", "2025-01-02", 2, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Check(cal, testProperty(), rng(t, tc.in, tc.out), tc.guests, today)
			if tc.want != nil {
				require.ErrorIs(t, err, tc.want)
				return
			}
			require.NoError(t, err)
			assert.True(t, res.Available)
			assert.Equal(t, 3, res.Nights)
		})
	}
}

func TestCheckReportsConflictingRange(t *testing.T) {
	cal := NewCalendar("prop-1")
	addBooking(t, cal, "a", "2024-12-25", "2024-12-30", booking.StatusConfirmed)

	_, err := Check(cal, testProperty(), rng(t, "2024-12-28", "2025-01-02"), 2, today)
	var conflict *DateConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "[2024-12-25, 2024-12-30)", conflict.Conflicting.String())
}

func TestCheckStayLengthBounds(t *testing.T) {
	p := testProperty()
	_, err := Check(NewCalendar(p.ID), p, rng(t, "2024-12-25", "2024-12-26"), 1, today)
	var stay *StayLengthError
	require.ErrorAs(t, err, &stay)
	assert.Equal(t, 1, stay.Nights)
	assert.Equal(t, 2, stay.Min)
	assert.Equal(t, 30, stay.Max)
}

func TestCheckUnboundedPolicies(t *testing.T) {
	p := testProperty()
	p.Pricing.MaxStayNights = 0
	p.Pricing.AdvanceBookingDays = 0
	p.Pricing.InstantBookEnabled = true

	res, err := Check(NewCalendar(p.ID), p, rng(t, "2027-01-01", "2027-04-01"), 1, today)
	require.NoError(t, err)
	assert.True(t, res.InstantBook)
}

func TestCheckTodayIsBookable(t *testing.T) {
	p := testProperty()
	_, err := Check(NewCalendar(p.ID), p, rng(t, "2024-12-01", "2024-12-03"), 1, today.Add(23*time.Hour))
	require.NoError(t, err)
}
