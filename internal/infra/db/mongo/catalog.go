package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlistings "stayengine/internal/domain/listings"
	"stayengine/internal/domain/shared/money"
)

// Catalog reads property booking configuration from the catalog collection.
type Catalog struct {
	col *mongo.Collection
}

func NewCatalog(db *mongo.Database) *Catalog {
	return &Catalog{col: db.Collection("properties")}
}

func (c *Catalog) Property(ctx context.Context, id domainlistings.PropertyID) (*domainlistings.Property, error) {
	var doc propertyDocument
	if err := c.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", domainlistings.ErrPropertyNotFound, id)
		}
		return nil, err
	}
	p := doc.toDomain()
	return &p, nil
}

// Upsert stores p; used to seed fixtures.
func (c *Catalog) Upsert(ctx context.Context, p domainlistings.Property) error {
	if err := p.Validate(); err != nil {
		return err
	}
	doc := newPropertyDocument(p)
	_, err := c.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

type propertyDocument struct {
	ID        string          `bson:"_id"`
	Host      string          `bson:"host"`
	Title     string          `bson:"title"`
	MaxGuests int             `bson:"max_guests"`
	Pricing   pricingDocument `bson:"pricing"`
}

type pricingDocument struct {
	BasePricePerNight  money.Money `bson:"base_price_per_night"`
	CleaningFee        money.Money `bson:"cleaning_fee"`
	SecurityDeposit    money.Money `bson:"security_deposit"`
	ServiceFeeRate     int64       `bson:"service_fee_rate_micros"`
	TaxRate            int64       `bson:"tax_rate_micros"`
	MinStayNights      int         `bson:"min_stay_nights"`
	MaxStayNights      int         `bson:"max_stay_nights"`
	AdvanceBookingDays int         `bson:"advance_booking_days"`
	CheckInTime        string      `bson:"check_in_time"`
	CheckOutTime       string      `bson:"check_out_time"`
	InstantBookEnabled bool        `bson:"instant_book_enabled"`
}

func newPropertyDocument(p domainlistings.Property) propertyDocument {
	c := p.Pricing
	return propertyDocument{
		ID:        string(p.ID),
		Host:      string(p.Host),
		Title:     p.Title,
		MaxGuests: p.MaxGuests,
		Pricing: pricingDocument{
			BasePricePerNight:  c.BasePricePerNight,
			CleaningFee:        c.CleaningFee,
			SecurityDeposit:    c.SecurityDeposit,
			ServiceFeeRate:     int64(c.ServiceFeeRate),
			TaxRate:            int64(c.TaxRate),
			MinStayNights:      c.MinStayNights,
			MaxStayNights:      c.MaxStayNights,
			AdvanceBookingDays: c.AdvanceBookingDays,
			CheckInTime:        c.CheckInTime,
			CheckOutTime:       c.CheckOutTime,
			InstantBookEnabled: c.InstantBookEnabled,
		},
	}
}

func (d propertyDocument) toDomain() domainlistings.Property {
	c := d.Pricing
	return domainlistings.Property{
		ID:        domainlistings.PropertyID(d.ID),
		Host:      domainlistings.HostID(d.Host),
		Title:     d.Title,
		MaxGuests: d.MaxGuests,
		Pricing: domainlistings.PricingConfig{
			BasePricePerNight:  c.BasePricePerNight,
			CleaningFee:        c.CleaningFee,
			SecurityDeposit:    c.SecurityDeposit,
			ServiceFeeRate:     money.Rate(c.ServiceFeeRate),
			TaxRate:            money.Rate(c.TaxRate),
			MinStayNights:      c.MinStayNights,
			MaxStayNights:      c.MaxStayNights,
			AdvanceBookingDays: c.AdvanceBookingDays,
			CheckInTime:        c.CheckInTime,
			CheckOutTime:       c.CheckOutTime,
			InstantBookEnabled: c.InstantBookEnabled,
		},
	}
}

var _ domainlistings.Catalog = (*Catalog)(nil)
