package memory

import (
	"context"
	"sort"
	"sync"

	domainavailability "stayengine/internal/domain/availability"
	domainbooking "stayengine/internal/domain/booking"
	domainlistings "stayengine/internal/domain/listings"
)

// CalendarRepository keeps calendars in memory. Reads and writes copy, so a
// caller never sees another caller's half-applied mutation.
type CalendarRepository struct {
	mu        sync.RWMutex
	calendars map[domainlistings.PropertyID]*domainavailability.Calendar
	owners    map[domainbooking.BookingID]domainlistings.PropertyID
}

func NewCalendarRepository() *CalendarRepository {
	return &CalendarRepository{
		calendars: make(map[domainlistings.PropertyID]*domainavailability.Calendar),
		owners:    make(map[domainbooking.BookingID]domainlistings.PropertyID),
	}
}

// Calendar returns a snapshot, or an empty calendar at version 0 for an unknown property.
func (r *CalendarRepository) Calendar(ctx context.Context, id domainlistings.PropertyID) (*domainavailability.Calendar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	cal, ok := r.calendars[id]
	if !ok {
		return domainavailability.NewCalendar(id), nil
	}
	return cal.Clone(), nil
}

func (r *CalendarRepository) Save(ctx context.Context, cal *domainavailability.Calendar) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var current int64
	if stored, ok := r.calendars[cal.PropertyID]; ok {
		current = stored.Version
	}
	if current != cal.Version {
		return domainavailability.ErrConcurrentUpdate
	}
	cal.Version++
	for _, b := range cal.Bookings {
		b.Version = cal.Version
		r.owners[b.ID] = cal.PropertyID
	}
	r.calendars[cal.PropertyID] = cal.Clone()
	return nil
}

func (r *CalendarRepository) PropertyOf(ctx context.Context, id domainbooking.BookingID) (domainlistings.PropertyID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.owners[id]
	if !ok {
		return "", domainbooking.ErrNotFound
	}
	return owner, nil
}

func (r *CalendarRepository) PropertyIDs(ctx context.Context) ([]domainlistings.PropertyID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]domainlistings.PropertyID, 0, len(r.calendars))
	for id := range r.calendars {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

var _ domainavailability.Repository = (*CalendarRepository)(nil)
