package availability

import (
	"context"
	"sort"
	"time"

	"stayengine/internal/domain/booking"
	"stayengine/internal/domain/listings"
	"stayengine/internal/domain/shared/daterange"
	"stayengine/internal/domain/shared/events"
)

const (
	ReasonBooking = "BOOKING"
	// DefaultBlockReason applies when a host blocks dates without saying why.
	DefaultBlockReason = "HOST_BLOCK"
)

type Block struct {
	Range     daterange.DateRange `json:"range" bson:"range"`
	Reason    string              `json:"reason" bson:"reason"`
	CreatedBy listings.HostID     `json:"created_by" bson:"created_by"`
	CreatedAt time.Time           `json:"created_at" bson:"created_at"`
}

// Calendar holds every booking and block of one property. Blocks never overlap
// each other, and active bookings never overlap each other or any block.
type Calendar struct {
	PropertyID listings.PropertyID
	Bookings   []*booking.Booking
	Blocks     []Block
	Version    int64
	events.EventRecorder
}

// Repository persists calendars with optimistic versioning: Save succeeds only
// when the stored version still equals the snapshot version, and bumps it.
type Repository interface {
	Calendar(ctx context.Context, id listings.PropertyID) (*Calendar, error)
	Save(ctx context.Context, calendar *Calendar) error
	PropertyOf(ctx context.Context, id booking.BookingID) (listings.PropertyID, error)
	PropertyIDs(ctx context.Context) ([]listings.PropertyID, error)
}

func NewCalendar(id listings.PropertyID) *Calendar {
	return &Calendar{PropertyID: id}
}

func (c *Calendar) ActiveBookingsOverlapping(r daterange.DateRange) []*booking.Booking {
	var out []*booking.Booking
	for _, b := range c.Bookings {
		if b.IsActive() && b.Range.Overlaps(r) {
			out = append(out, b)
		}
	}
	sortBookings(out)
	return out
}

func (c *Calendar) BlocksOverlapping(r daterange.DateRange) []Block {
	var out []Block
	for _, blk := range c.Blocks {
		if blk.Range.Overlaps(r) {
			out = append(out, blk)
		}
	}
	return out
}

func (c *Calendar) Booking(id booking.BookingID) (*booking.Booking, error) {
	for _, b := range c.Bookings {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, booking.ErrNotFound
}

// Reserve inserts b after re-checking it against active bookings and blocks.
func (c *Calendar) Reserve(b *booking.Booking, now time.Time) error {
	if conflicts := c.ActiveBookingsOverlapping(b.Range); len(conflicts) > 0 {
		c.Record(CalendarOverbookingPreventedEvent(c.PropertyID, b.Range, conflicts[0].ID, now))
		return &DateConflictError{Requested: b.Range, Conflicting: conflicts[0].Range, BookingID: conflicts[0].ID}
	}
	if blocks := c.BlocksOverlapping(b.Range); len(blocks) > 0 {
		return &DateBlockedError{Requested: b.Range, Blocked: blocks[0].Range, Reason: blocks[0].Reason}
	}
	c.Bookings = append(c.Bookings, b)
	c.Record(CalendarBlockedEvent(c.PropertyID, b.Range, ReasonBooking, string(b.ID), now))
	return nil
}

// AddBlock blocks r. Same-reason blocks that overlap or touch r are merged into
// one; overlapping an active booking or a block with another reason is a conflict.
func (c *Calendar) AddBlock(r daterange.DateRange, reason string, host listings.HostID, now time.Time) (Block, error) {
	if err := r.Validate(); err != nil {
		return Block{}, err
	}
	if reason == "" {
		reason = DefaultBlockReason
	}
	if conflicts := c.ActiveBookingsOverlapping(r); len(conflicts) > 0 {
		return Block{}, &ConflictError{Requested: r, Conflicting: conflicts[0].Range, BookingID: conflicts[0].ID}
	}
	for _, blk := range c.Blocks {
		if blk.Reason != reason && blk.Range.Overlaps(r) {
			return Block{}, &ConflictError{Requested: r, Conflicting: blk.Range, Reason: blk.Reason}
		}
	}
	merged := r
	kept := make([]Block, 0, len(c.Blocks)+1)
	for _, blk := range c.sortedBlocks() {
		if blk.Reason == reason {
			if m, ok := merged.Merge(blk.Range); ok {
				merged = m
				continue
			}
		}
		kept = append(kept, blk)
	}
	block := Block{Range: merged, Reason: reason, CreatedBy: host, CreatedAt: now.UTC()}
	c.Blocks = append(kept, block)
	sortBlocks(c.Blocks)
	c.Record(CalendarBlockedEvent(c.PropertyID, r, reason, string(host), now))
	return block, nil
}

// RemoveBlock releases r from every block overlapping it. A block partially
// covered by r leaves one or two remainders.
func (c *Calendar) RemoveBlock(r daterange.DateRange, now time.Time) error {
	if err := r.Validate(); err != nil {
		return err
	}
	var (
		next    = make([]Block, 0, len(c.Blocks)+1)
		touched bool
	)
	for _, blk := range c.Blocks {
		released, ok := blk.Range.Intersect(r)
		if !ok {
			next = append(next, blk)
			continue
		}
		touched = true
		for _, rest := range blk.Range.Subtract(r) {
			piece := blk
			piece.Range = rest
			next = append(next, piece)
		}
		c.Record(CalendarReleasedEvent(c.PropertyID, released, blk.Reason, now))
	}
	if !touched {
		return &BlockNotFoundError{Range: r}
	}
	sortBlocks(next)
	c.Blocks = next
	return nil
}

// CompleteStays moves confirmed bookings whose checkout is on or before today to COMPLETED.
func (c *Calendar) CompleteStays(today time.Time) []booking.BookingID {
	var done []booking.BookingID
	for _, b := range c.Bookings {
		if b.Status != booking.StatusConfirmed {
			continue
		}
		if err := b.Complete(today); err == nil {
			done = append(done, b.ID)
		}
	}
	return done
}

// DrainEvents returns the calendar's events followed by those of its bookings.
func (c *Calendar) DrainEvents() []events.DomainEvent {
	out := c.EventRecorder.DrainEvents()
	for _, b := range c.Bookings {
		out = append(out, b.DrainEvents()...)
	}
	return out
}

// Clone deep-copies the calendar without pending events.
func (c *Calendar) Clone() *Calendar {
	if c == nil {
		return nil
	}
	out := &Calendar{PropertyID: c.PropertyID, Version: c.Version}
	if len(c.Bookings) > 0 {
		out.Bookings = make([]*booking.Booking, len(c.Bookings))
		for i, b := range c.Bookings {
			out.Bookings[i] = b.Clone()
		}
	}
	if len(c.Blocks) > 0 {
		out.Blocks = append([]Block(nil), c.Blocks...)
	}
	return out
}

func (c *Calendar) sortedBlocks() []Block {
	out := append([]Block(nil), c.Blocks...)
	sortBlocks(out)
	return out
}

func sortBlocks(blocks []Block) {
	sort.Slice(blocks, func(i, j int) bool {
		return blocks[i].Range.CheckIn.Before(blocks[j].Range.CheckIn)
	})
}

func sortBookings(list []*booking.Booking) {
	sort.Slice(list, func(i, j int) bool {
		return list[i].Range.CheckIn.Before(list[j].Range.CheckIn)
	})
}
