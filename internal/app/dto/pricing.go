package dto

import (
	domainpricing "stayengine/internal/domain/pricing"
	"stayengine/internal/domain/shared/daterange"
)

type PriceBreakdown struct {
	Nights          int      `json:"nights"`
	Nightly         MoneyDTO `json:"nightly"`
	BaseTotal       MoneyDTO `json:"base_total"`
	CleaningFee     MoneyDTO `json:"cleaning_fee"`
	ServiceFee      MoneyDTO `json:"service_fee"`
	Taxes           MoneyDTO `json:"taxes"`
	SecurityDeposit MoneyDTO `json:"security_deposit"`
	Total           MoneyDTO `json:"total"`
}

type Quote struct {
	PropertyID string         `json:"property_id"`
	CheckIn    string         `json:"check_in"`
	CheckOut   string         `json:"check_out"`
	Breakdown  PriceBreakdown `json:"breakdown"`
}

func MapPriceBreakdown(p domainpricing.PriceBreakdown) PriceBreakdown {
	return PriceBreakdown{
		Nights:          p.Nights,
		Nightly:         MapMoney(p.Nightly),
		BaseTotal:       MapMoney(p.BaseTotal),
		CleaningFee:     MapMoney(p.CleaningFee),
		ServiceFee:      MapMoney(p.ServiceFee),
		Taxes:           MapMoney(p.Taxes),
		SecurityDeposit: MapMoney(p.SecurityDeposit),
		Total:           MapMoney(p.Total),
	}
}

func MapQuote(propertyID string, r daterange.DateRange, p domainpricing.PriceBreakdown) *Quote {
	return &Quote{
		PropertyID: propertyID,
		CheckIn:    FormatDay(r.CheckIn),
		CheckOut:   FormatDay(r.CheckOut),
		Breakdown:  MapPriceBreakdown(p),
	}
}
