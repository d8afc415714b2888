package pricing

import (
	"errors"

	"stayengine/internal/domain/listings"
	"stayengine/internal/domain/shared/daterange"
	"stayengine/internal/domain/shared/money"
)

var (
	ErrNegativeComponent = errors.New("pricing: components cannot be negative")
	ErrCurrencyUnset     = errors.New("pricing: currency must be defined")
	ErrNightsNotPositive = errors.New("pricing: nights must be positive")
)

// PriceBreakdown is snapshotted into a booking at creation and never recomputed.
type PriceBreakdown struct {
	Nights          int         `json:"nights" bson:"nights"`
	Nightly         money.Money `json:"nightly" bson:"nightly"`
	BaseTotal       money.Money `json:"base_total" bson:"base_total"`
	CleaningFee     money.Money `json:"cleaning_fee" bson:"cleaning_fee"`
	ServiceFee      money.Money `json:"service_fee" bson:"service_fee"`
	Taxes           money.Money `json:"taxes" bson:"taxes"`
	SecurityDeposit money.Money `json:"security_deposit" bson:"security_deposit"`
	Total           money.Money `json:"total" bson:"total"`
}

func (p *PriceBreakdown) Validate() error {
	if p.Nightly.Currency == "" {
		return ErrCurrencyUnset
	}
	if p.Nights <= 0 {
		return ErrNightsNotPositive
	}
	for _, m := range []money.Money{p.CleaningFee, p.ServiceFee, p.Taxes, p.SecurityDeposit} {
		if m.IsNegative() {
			return ErrNegativeComponent
		}
	}
	return nil
}

// RecalculateTotal sets BaseTotal and Total from the components. The deposit is
// authorized separately and stays out of Total.
func (p *PriceBreakdown) RecalculateTotal() error {
	if err := p.Validate(); err != nil {
		return err
	}
	cur := p.Nightly.Currency
	p.CleaningFee = orZero(p.CleaningFee, cur)
	p.ServiceFee = orZero(p.ServiceFee, cur)
	p.Taxes = orZero(p.Taxes, cur)
	p.SecurityDeposit = orZero(p.SecurityDeposit, cur)
	p.BaseTotal = p.Nightly.Multiply(int64(p.Nights))
	total, err := money.Sum(p.Nightly.Currency, p.BaseTotal, p.CleaningFee, p.ServiceFee, p.Taxes)
	if err != nil {
		return err
	}
	p.Total = total
	return nil
}

// Compute prices a stay. It is pure: identical inputs give identical output.
func Compute(r daterange.DateRange, cfg listings.PricingConfig) (PriceBreakdown, error) {
	if err := r.Validate(); err != nil {
		return PriceBreakdown{}, err
	}
	cur := cfg.Currency()
	if cur == "" {
		return PriceBreakdown{}, ErrCurrencyUnset
	}
	nightly := cfg.BasePricePerNight
	base := nightly.Multiply(int64(r.Nights()))
	p := PriceBreakdown{
		Nights:          r.Nights(),
		Nightly:         nightly,
		CleaningFee:     orZero(cfg.CleaningFee, cur),
		ServiceFee:      base.MulRate(cfg.ServiceFeeRate),
		Taxes:           base.MulRate(cfg.TaxRate),
		SecurityDeposit: orZero(cfg.SecurityDeposit, cur),
	}
	if err := p.RecalculateTotal(); err != nil {
		return PriceBreakdown{}, err
	}
	return p, nil
}

func orZero(m money.Money, currency string) money.Money {
	if m.Currency == "" && m.Amount == 0 {
		return money.Zero(currency)
	}
	return m
}
