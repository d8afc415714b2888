package daterange

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DayLayout is the wire format of a calendar day.
const DayLayout = "2006-01-02"

const day = 24 * time.Hour

var (
	ErrInvalidRange = errors.New("daterange: checkout must be after checkin")
	ErrInvalidDay   = errors.New("daterange: invalid calendar day")
)

// DateRange represents a half-open interval [checkIn, checkOut) of calendar days.
// Both bounds are midnight UTC; the zero value is not a valid range.
type DateRange struct {
	CheckIn  time.Time `json:"check_in" bson:"check_in"`
	CheckOut time.Time `json:"check_out" bson:"check_out"`
}

// Day truncates t to midnight UTC of the calendar date it carries.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(value string) (time.Time, error) {
	t, err := time.Parse(DayLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDay, value)
	}
	return t, nil
}

func New(checkIn, checkOut time.Time) (DateRange, error) {
	if checkIn.IsZero() || checkOut.IsZero() {
		return DateRange{}, ErrInvalidRange
	}
	dr := DateRange{CheckIn: Day(checkIn), CheckOut: Day(checkOut)}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

// Must is New for fixtures and tests.
func Must(checkIn, checkOut time.Time) DateRange {
	dr, err := New(checkIn, checkOut)
	if err != nil {
		panic(err)
	}
	return dr
}

// Parse builds a range from two YYYY-MM-DD strings.
func Parse(checkIn, checkOut string) (DateRange, error) {
	in, err := ParseDay(checkIn)
	if err != nil {
		return DateRange{}, err
	}
	out, err := ParseDay(checkOut)
	if err != nil {
		return DateRange{}, err
	}
	return New(in, out)
}

func (dr DateRange) Validate() error {
	if dr.CheckOut.IsZero() || dr.CheckIn.IsZero() {
		return ErrInvalidRange
	}
	if !dr.CheckOut.After(dr.CheckIn) {
		return ErrInvalidRange
	}
	return nil
}

func (dr DateRange) Nights() int {
	return int(dr.CheckOut.Sub(dr.CheckIn).Round(time.Hour) / day)
}

func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(dr.CheckOut)
}

func (dr DateRange) Contains(other DateRange) bool {
	return !other.CheckIn.Before(dr.CheckIn) && !other.CheckOut.After(dr.CheckOut)
}

// ContainsDay reports whether the calendar day of t is one of the nights of the range.
func (dr DateRange) ContainsDay(t time.Time) bool {
	t = Day(t)
	return !t.Before(dr.CheckIn) && t.Before(dr.CheckOut)
}

func (dr DateRange) Adjacent(other DateRange) bool {
	return dr.CheckOut.Equal(other.CheckIn) || dr.CheckIn.Equal(other.CheckOut)
}

func (dr DateRange) AdjacentOrOverlapping(other DateRange) bool {
	return dr.Overlaps(other) || dr.Adjacent(other)
}

func (dr DateRange) Merge(other DateRange) (DateRange, bool) {
	if !dr.AdjacentOrOverlapping(other) {
		return DateRange{}, false
	}
	start := dr.CheckIn
	if other.CheckIn.Before(start) {
		start = other.CheckIn
	}
	end := dr.CheckOut
	if other.CheckOut.After(end) {
		end = other.CheckOut
	}
	return DateRange{CheckIn: start, CheckOut: end}, true
}

// Intersect returns the shared nights of both ranges.
func (dr DateRange) Intersect(other DateRange) (DateRange, bool) {
	if !dr.Overlaps(other) {
		return DateRange{}, false
	}
	start := dr.CheckIn
	if other.CheckIn.After(start) {
		start = other.CheckIn
	}
	end := dr.CheckOut
	if other.CheckOut.Before(end) {
		end = other.CheckOut
	}
	return DateRange{CheckIn: start, CheckOut: end}, true
}

// Subtract removes other from the range, leaving zero, one or two pieces in order.
func (dr DateRange) Subtract(other DateRange) []DateRange {
	if !dr.Overlaps(other) {
		return []DateRange{dr}
	}
	var rest []DateRange
	if dr.CheckIn.Before(other.CheckIn) {
		rest = append(rest, DateRange{CheckIn: dr.CheckIn, CheckOut: other.CheckIn})
	}
	if other.CheckOut.Before(dr.CheckOut) {
		rest = append(rest, DateRange{CheckIn: other.CheckOut, CheckOut: dr.CheckOut})
	}
	return rest
}

// Days lists every night of the range in order.
func (dr DateRange) Days() []time.Time {
	n := dr.Nights()
	if n <= 0 {
		return nil
	}
	out := make([]time.Time, 0, n)
	for d := dr.CheckIn; d.Before(dr.CheckOut); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

func (dr DateRange) String() string {
	return fmt.Sprintf("[%s, %s)", dr.CheckIn.Format(DayLayout), dr.CheckOut.Format(DayLayout))
}
