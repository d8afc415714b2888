package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, in, out string) DateRange {
	t.Helper()
	r, err := Parse(in, out)
	require.NoError(t, err)
	return r
}

func TestNewRejectsEmptyAndInvertedRanges(t *testing.T) {
	day := time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC)
	_, err := New(day, day)
	require.ErrorIs(t, err, ErrInvalidRange)
	_, err = New(day, day.AddDate(0, 0, -1))
	require.ErrorIs(t, err, ErrInvalidRange)
	_, err = Parse("2024-13-01", "2024-12-30")
	require.ErrorIs(t, err, ErrInvalidDay)
}

func TestNewNormalizesToMidnightUTC(t *testing.T) {
	loc := time.FixedZone("UTC+4", 4*3600)
	r, err := New(time.Date(2024, 12, 25, 15, 30, 0, 0, loc), time.Date(2024, 12, 27, 1, 0, 0, 0, loc))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC), r.CheckIn)
	assert.Equal(t, 2, r.Nights())
}

func TestOverlapsIsHalfOpen(t *testing.T) {
	a := mustParse(t, "2024-12-25", "2024-12-30")
	cases := []struct {
		name string
		b    DateRange
		want bool
	}{
		{"back to back after", mustParse(t, "2024-12-30", "2025-01-02"), false},
		{"back to back before", mustParse(t, "2024-12-20", "2024-12-25"), false},
		{"tail overlap", mustParse(t, "2024-12-28", "2025-01-02"), true},
		{"contained", mustParse(t, "2024-12-26", "2024-12-27"), true},
		{"enclosing", mustParse(t, "2024-12-01", "2025-01-31"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, a.Overlaps(tc.b))
			assert.Equal(t, tc.want, tc.b.Overlaps(a))
		})
	}
}

func TestContainsDayExcludesCheckout(t *testing.T) {
	r := mustParse(t, "2024-12-25", "2024-12-30")
	assert.True(t, r.ContainsDay(r.CheckIn))
	assert.True(t, r.ContainsDay(time.Date(2024, 12, 29, 23, 0, 0, 0, time.UTC)))
	assert.False(t, r.ContainsDay(r.CheckOut))
}

func TestAdjacentOrOverlappingAndMerge(t *testing.T) {
	a := mustParse(t, "2025-01-10", "2025-01-15")
	b := mustParse(t, "2025-01-15", "2025-01-18")
	c := mustParse(t, "2025-01-19", "2025-01-20")

	require.True(t, a.AdjacentOrOverlapping(b))
	require.False(t, a.AdjacentOrOverlapping(c))

	merged, ok := a.Merge(b)
	require.True(t, ok)
	assert.Equal(t, "[2025-01-10, 2025-01-18)", merged.String())

	_, ok = a.Merge(c)
	assert.False(t, ok)
}

func TestSubtractSplits(t *testing.T) {
	block := mustParse(t, "2025-01-10", "2025-01-20")

	middle := block.Subtract(mustParse(t, "2025-01-12", "2025-01-14"))
	require.Len(t, middle, 2)
	assert.Equal(t, "[2025-01-10, 2025-01-12)", middle[0].String())
	assert.Equal(t, "[2025-01-14, 2025-01-20)", middle[1].String())

	head := block.Subtract(mustParse(t, "2025-01-05", "2025-01-12"))
	require.Len(t, head, 1)
	assert.Equal(t, "[2025-01-12, 2025-01-20)", head[0].String())

	assert.Empty(t, block.Subtract(mustParse(t, "2025-01-01", "2025-02-01")))
	assert.Equal(t, []DateRange{block}, block.Subtract(mustParse(t, "2025-02-01", "2025-02-03")))
}

func TestIntersectAndDays(t *testing.T) {
	r := mustParse(t, "2025-01-30", "2025-02-03")
	feb := mustParse(t, "2025-02-01", "2025-03-01")
	shared, ok := r.Intersect(feb)
	require.True(t, ok)
	assert.Equal(t, 2, shared.Nights())
	assert.Len(t, r.Days(), 4)
}
