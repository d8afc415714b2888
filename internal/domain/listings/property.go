package listings

import (
	"context"
	"errors"
	"strings"

	"stayengine/internal/domain/shared/money"
)

var (
	ErrPropertyNotFound = errors.New("listings: property not found")
	ErrGuestsLimit      = errors.New("listings: guests limit must be at least 1")
	ErrNightsRange      = errors.New("listings: min nights must be <= max nights")
	ErrNightlyRate      = errors.New("listings: nightly rate must be non-negative")
	ErrFeeNegative      = errors.New("listings: fees and deposit must be non-negative")
	ErrRateNegative     = errors.New("listings: rates must be non-negative")
	ErrAdvanceWindow    = errors.New("listings: advance booking days must be non-negative")
	ErrCurrencyMixed    = errors.New("listings: all pricing amounts must share one currency")
	ErrNotHost          = errors.New("listings: actor is not the property host")
)

type PropertyID string
type HostID string

// PricingConfig is owned by the property catalog; the engine only reads it.
type PricingConfig struct {
	BasePricePerNight money.Money `json:"base_price_per_night"`
	CleaningFee       money.Money `json:"cleaning_fee"`
	SecurityDeposit   money.Money `json:"security_deposit"`
	ServiceFeeRate    money.Rate  `json:"service_fee_rate"`
	TaxRate           money.Rate  `json:"tax_rate"`
	// MinStayNights below 1 is treated as 1; MaxStayNights 0 means no ceiling.
	MinStayNights int `json:"min_stay_nights"`
	MaxStayNights int `json:"max_stay_nights"`
	// AdvanceBookingDays 0 disables the advance-booking ceiling.
	AdvanceBookingDays int    `json:"advance_booking_days"`
	CheckInTime        string `json:"check_in_time"`
	CheckOutTime       string `json:"check_out_time"`
	InstantBookEnabled bool   `json:"instant_book_enabled"`
}

func (c PricingConfig) Currency() string {
	return c.BasePricePerNight.Currency
}

func (c PricingConfig) MinNights() int {
	if c.MinStayNights < 1 {
		return 1
	}
	return c.MinStayNights
}

func (c PricingConfig) Validate() error {
	if c.BasePricePerNight.Amount < 0 {
		return ErrNightlyRate
	}
	cur := c.Currency()
	if len(cur) != 3 {
		return money.ErrInvalidCurrency
	}
	for _, m := range []money.Money{c.CleaningFee, c.SecurityDeposit} {
		if m.Amount < 0 {
			return ErrFeeNegative
		}
		if m.Currency != "" && m.Currency != cur {
			return ErrCurrencyMixed
		}
	}
	if c.ServiceFeeRate < 0 || c.TaxRate < 0 {
		return ErrRateNegative
	}
	if c.MaxStayNights > 0 && c.MinNights() > c.MaxStayNights {
		return ErrNightsRange
	}
	if c.AdvanceBookingDays < 0 {
		return ErrAdvanceWindow
	}
	return nil
}

// Property is the catalog's view of a listing as far as booking is concerned.
type Property struct {
	ID        PropertyID    `json:"id"`
	Host      HostID        `json:"host"`
	Title     string        `json:"title"`
	MaxGuests int           `json:"max_guests"`
	Pricing   PricingConfig `json:"pricing"`
}

func (p *Property) Validate() error {
	if strings.TrimSpace(string(p.ID)) == "" {
		return errors.New("listings: id is required")
	}
	if strings.TrimSpace(string(p.Host)) == "" {
		return errors.New("listings: host is required")
	}
	if p.MaxGuests < 1 {
		return ErrGuestsLimit
	}
	return p.Pricing.Validate()
}

func (p *Property) HostedBy(host HostID) bool {
	return host != "" && p.Host == host
}

// Catalog supplies property configuration, refreshed on every request.
type Catalog interface {
	Property(ctx context.Context, id PropertyID) (*Property, error)
}
