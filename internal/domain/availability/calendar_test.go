package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayengine/internal/domain/booking"
)

func TestReserveRejectsOverlapAndRecordsPrevention(t *testing.T) {
	cal := NewCalendar("prop-1")
	addBooking(t, cal, "a", "2024-12-25", "2024-12-30", booking.StatusConfirmed)
	cal.DrainEvents()

	b := &booking.Booking{ID: "b", Range: rng(t, "2024-12-28", "2025-01-02"), Status: booking.StatusPending}
	err := cal.Reserve(b, today)

	var conflict *DateConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, booking.BookingID("a"), conflict.BookingID)
	assert.Equal(t, "[2024-12-25, 2024-12-30)", conflict.Conflicting.String())
	assert.Len(t, cal.Bookings, 1)

	evs := cal.DrainEvents()
	require.Len(t, evs, 1)
	assert.Equal(t, "calendar.overbooking_prevented", evs[0].EventName())
}

func TestReserveAllowsBackToBackAndCancelledOverlap(t *testing.T) {
	cal := NewCalendar("prop-1")
	addBooking(t, cal, "a", "2024-12-25", "2024-12-30", booking.StatusConfirmed)
	addBooking(t, cal, "b", "2024-12-30", "2025-01-02", booking.StatusPending)
	addBooking(t, cal, "c", "2025-01-05", "2025-01-08", booking.StatusCancelled)
	addBooking(t, cal, "d", "2025-01-05", "2025-01-08", booking.StatusPending)

	assert.Len(t, cal.Bookings, 4)
	assert.Len(t, cal.ActiveBookingsOverlapping(rng(t, "2024-12-01", "2025-02-01")), 3)
}

func TestAddBlockOverBookingConflicts(t *testing.T) {
	cal := NewCalendar("prop-1")
	addBooking(t, cal, "a", "2024-12-25", "2024-12-30", booking.StatusPending)

	_, err := cal.AddBlock(rng(t, "2024-12-29", "2025-01-03"), "maintenance", "host-1", today)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, booking.BookingID("a"), conflict.BookingID)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Empty(t, cal.Blocks)
}

func TestAddBlockMergesSameReason(t *testing.T) {
	cal := NewCalendar("prop-1")
	_, err := cal.AddBlock(rng(t, "2025-01-10", "2025-01-15"), "maintenance", "host-1", today)
	require.NoError(t, err)
	_, err = cal.AddBlock(rng(t, "2025-01-15", "2025-01-18"), "maintenance", "host-1", today)
	require.NoError(t, err)
	blk, err := cal.AddBlock(rng(t, "2025-01-08", "2025-01-11"), "maintenance", "host-1", today)
	require.NoError(t, err)

	require.Len(t, cal.Blocks, 1)
	assert.Equal(t, "[2025-01-08, 2025-01-18)", cal.Blocks[0].Range.String())
	assert.Equal(t, cal.Blocks[0], blk)
}

func TestAddBlockDifferentReason(t *testing.T) {
	cal := NewCalendar("prop-1")
	_, err := cal.AddBlock(rng(t, "2025-01-10", "2025-01-15"), "maintenance", "host-1", today)
	require.NoError(t, err)

	_, err = cal.AddBlock(rng(t, "2025-01-14", "2025-01-16"), "family", "host-1", today)
	require.ErrorIs(t, err, ErrConflict)

	_, err = cal.AddBlock(rng(t, "2025-01-15", "2025-01-16"), "family", "host-1", today)
	require.NoError(t, err, "adjacent blocks with different reasons stay separate")
	assert.Len(t, cal.Blocks, 2)
}

func TestAddBlockDefaultsReason(t *testing.T) {
	cal := NewCalendar("prop-1")
	blk, err := cal.AddBlock(rng(t, "2025-01-10", "2025-01-11"), "", "host-1", today)
	require.NoError(t, err)
	assert.Equal(t, DefaultBlockReason, blk.Reason)
}

func TestRemoveBlockSplits(t *testing.T) {
	cases := []struct {
		name   string
		remove [2]string
		want   []string
	}{
		{"whole", [2]string{"2025-01-10", "2025-01-20"}, nil},
		{"superset", [2]string{"2025-01-01", "2025-02-01"}, nil},
		{"head", [2]string{"2025-01-10", "2025-01-12"}, []string{"[2025-01-12, 2025-01-20)"}},
		{"tail", [2]string{"2025-01-18", "2025-01-25"}, []string{"[2025-01-10, 2025-01-18)"}},
		{"middle", [2]string{"2025-01-12", "2025-01-14"}, []string{"[2025-01-10, 2025-01-12)", "[2025-01-14, 2025-01-20)"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cal := NewCalendar("prop-1")
			_, err := cal.AddBlock(rng(t, "2025-01-10", "2025-01-20"), "maintenance", "host-1", today)
			require.NoError(t, err)

			require.NoError(t, cal.RemoveBlock(rng(t, tc.remove[0], tc.remove[1]), today))
			var got []string
			for _, blk := range cal.Blocks {
				got = append(got, blk.Range.String())
				assert.Equal(t, "maintenance", blk.Reason)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRemoveBlockNotFound(t *testing.T) {
	cal := NewCalendar("prop-1")
	_, err := cal.AddBlock(rng(t, "2025-01-10", "2025-01-20"), "maintenance", "host-1", today)
	require.NoError(t, err)

	err = cal.RemoveBlock(rng(t, "2025-01-20", "2025-01-22"), today)
	require.ErrorIs(t, err, ErrBlockNotFound)
	assert.Len(t, cal.Blocks, 1)
}

func TestCompleteStays(t *testing.T) {
	cal := NewCalendar("prop-1")
	addBooking(t, cal, "done", "2024-12-02", "2024-12-05", booking.StatusConfirmed)
	addBooking(t, cal, "ongoing", "2024-12-05", "2024-12-10", booking.StatusConfirmed)
	addBooking(t, cal, "pending", "2024-12-10", "2024-12-12", booking.StatusPending)

	done := cal.CompleteStays(rng(t, "2024-12-05", "2024-12-06").CheckIn)
	assert.Equal(t, []booking.BookingID{"done"}, done)

	b, err := cal.Booking("pending")
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPending, b.Status)
}

func TestCloneIsDeep(t *testing.T) {
	cal := NewCalendar("prop-1")
	addBooking(t, cal, "a", "2024-12-25", "2024-12-30", booking.StatusPending)
	_, err := cal.AddBlock(rng(t, "2025-01-10", "2025-01-20"), "maintenance", "host-1", today)
	require.NoError(t, err)

	snap := cal.Clone()
	snap.Bookings[0].Status = booking.StatusCancelled
	snap.Blocks[0].Reason = "changed"

	assert.Equal(t, booking.StatusPending, cal.Bookings[0].Status)
	assert.Equal(t, "maintenance", cal.Blocks[0].Reason)
	assert.Empty(t, snap.PendingEvents())
}
