package availability

import (
	"context"
	"time"

	"stayengine/internal/app/dto"
	"stayengine/internal/app/handlers/support"
	domainavailability "stayengine/internal/domain/availability"
	domainbooking "stayengine/internal/domain/booking"
	"stayengine/internal/domain/listings"
	"stayengine/internal/domain/pricing"
	"stayengine/internal/domain/shared/daterange"
)

const (
	checkAvailabilityKey = "availability.check"
	quoteKey             = "availability.quote"
	buildMonthKey        = "availability.month"
	monthlyStatsKey      = "availability.stats"
)

type CheckAvailabilityQuery struct {
	PropertyID string              `validate:"required"`
	Range      daterange.DateRange `validate:"-"`
	Guests     int                 `validate:"gte=1"`
}

func (q CheckAvailabilityQuery) Key() string { return checkAvailabilityKey }

type QuoteQuery struct {
	PropertyID string              `validate:"required"`
	Range      daterange.DateRange `validate:"-"`
}

func (q QuoteQuery) Key() string { return quoteKey }

// BuildMonthQuery carries the viewer so guest identity is only shown to the
// property's host and the system. The zero Viewer is anonymous.
type BuildMonthQuery struct {
	PropertyID string              `validate:"required"`
	Year       int                 `validate:"gte=1,lte=9999"`
	Month      int                 `validate:"gte=1,lte=12"`
	Viewer     domainbooking.Actor `validate:"-"`
}

func (q BuildMonthQuery) Key() string { return buildMonthKey }

type MonthlyStatsQuery struct {
	PropertyID string `validate:"required"`
	HostID     string `validate:"required"`
	Year       int    `validate:"gte=1,lte=9999"`
	Month      int    `validate:"gte=1,lte=12"`
}

func (q MonthlyStatsQuery) Key() string { return monthlyStatsKey }

func (q MonthlyStatsQuery) ScopedProperty() listings.PropertyID {
	return listings.PropertyID(q.PropertyID)
}

func (q MonthlyStatsQuery) ScopedHost() listings.HostID { return listings.HostID(q.HostID) }

// QueryHandler serves the read side. Every call works on a fresh snapshot and
// a fresh property lookup.
type QueryHandler struct {
	Catalog   listings.Catalog
	Calendars domainavailability.Repository
	Clock     support.Clock
}

func (h *QueryHandler) Check(ctx context.Context, q CheckAvailabilityQuery) (*dto.Availability, error) {
	property, cal, err := h.load(ctx, q.PropertyID)
	if err != nil {
		return nil, err
	}
	res, err := domainavailability.Check(cal, property, q.Range, q.Guests, h.now())
	if err != nil {
		return nil, err
	}
	return dto.MapAvailability(res), nil
}

func (h *QueryHandler) Quote(ctx context.Context, q QuoteQuery) (*dto.Quote, error) {
	property, err := h.Catalog.Property(ctx, listings.PropertyID(q.PropertyID))
	if err != nil {
		return nil, err
	}
	price, err := pricing.Compute(q.Range, property.Pricing)
	if err != nil {
		return nil, err
	}
	return dto.MapQuote(string(property.ID), q.Range, price), nil
}

func (h *QueryHandler) BuildMonth(ctx context.Context, q BuildMonthQuery) (*dto.CalendarMonth, error) {
	property, cal, err := h.load(ctx, q.PropertyID)
	if err != nil {
		return nil, err
	}
	month := time.Month(q.Month)
	cells, err := domainavailability.BuildMonth(cal, property.Pricing, q.Year, month)
	if err != nil {
		return nil, err
	}
	public := !seesGuests(q.Viewer, property)
	if public {
		domainavailability.HideGuests(cells)
	}
	out := dto.MapCalendarMonth(cal, q.Year, month, cells)
	if public {
		for i := range out.Blocks {
			out.Blocks[i].CreatedBy = ""
		}
	}
	return out, nil
}

func seesGuests(viewer domainbooking.Actor, property *listings.Property) bool {
	switch viewer.Role {
	case domainbooking.RoleSystem:
		return true
	case domainbooking.RoleHost:
		return viewer.ID != "" && property.HostedBy(listings.HostID(viewer.ID))
	}
	return false
}

func (h *QueryHandler) MonthlyStats(ctx context.Context, q MonthlyStatsQuery) (*dto.MonthlyStats, error) {
	property, cal, err := h.load(ctx, q.PropertyID)
	if err != nil {
		return nil, err
	}
	stats, err := domainavailability.ComputeMonthlyStats(cal, property.Pricing.Currency(), q.Year, time.Month(q.Month))
	if err != nil {
		return nil, err
	}
	return dto.MapMonthlyStats(stats), nil
}

func (h *QueryHandler) load(ctx context.Context, id string) (*listings.Property, *domainavailability.Calendar, error) {
	property, err := h.Catalog.Property(ctx, listings.PropertyID(id))
	if err != nil {
		return nil, nil, err
	}
	cal, err := h.Calendars.Calendar(ctx, property.ID)
	if err != nil {
		return nil, nil, err
	}
	return property, cal, nil
}

func (h *QueryHandler) now() time.Time {
	if h.Clock != nil {
		return h.Clock()
	}
	return support.SystemClock()
}
