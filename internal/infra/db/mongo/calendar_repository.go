package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainavailability "stayengine/internal/domain/availability"
	domainbooking "stayengine/internal/domain/booking"
	domainlistings "stayengine/internal/domain/listings"
	domainpricing "stayengine/internal/domain/pricing"
	"stayengine/internal/domain/shared/daterange"
	"stayengine/internal/domain/shared/money"
)

// CalendarRepository stores one document per property with its bookings and
// blocks embedded, so a calendar write is a single atomic document update.
type CalendarRepository struct {
	col *mongo.Collection
}

func NewCalendarRepository(db *mongo.Database) *CalendarRepository {
	return &CalendarRepository{col: db.Collection("agg_calendar")}
}

func (r *CalendarRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "bookings.id", Value: 1}}})
	return err
}

func (r *CalendarRepository) Calendar(ctx context.Context, id domainlistings.PropertyID) (*domainavailability.Calendar, error) {
	var doc calendarDocument
	err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domainavailability.NewCalendar(id), nil
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

// Save writes the calendar only if the stored version still matches. A version
// mismatch on an existing document turns the upsert into a duplicate _id insert.
func (r *CalendarRepository) Save(ctx context.Context, cal *domainavailability.Calendar) error {
	doc := newCalendarDocument(cal)
	doc.Version = cal.Version + 1
	for i := range doc.Bookings {
		doc.Bookings[i].Version = doc.Version
	}
	filter := bson.M{"_id": doc.ID, "version": cal.Version}
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainavailability.ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return domainavailability.ErrConcurrentUpdate
	}
	cal.Version = doc.Version
	for _, b := range cal.Bookings {
		b.Version = doc.Version
	}
	return nil
}

func (r *CalendarRepository) PropertyOf(ctx context.Context, id domainbooking.BookingID) (domainlistings.PropertyID, error) {
	var doc struct {
		ID string `bson:"_id"`
	}
	opts := options.FindOne().SetProjection(bson.M{"_id": 1})
	err := r.col.FindOne(ctx, bson.M{"bookings.id": string(id)}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", domainbooking.ErrNotFound
		}
		return "", err
	}
	return domainlistings.PropertyID(doc.ID), nil
}

func (r *CalendarRepository) PropertyIDs(ctx context.Context) ([]domainlistings.PropertyID, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var ids []domainlistings.PropertyID
	for cur.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		ids = append(ids, domainlistings.PropertyID(doc.ID))
	}
	return ids, cur.Err()
}

type calendarDocument struct {
	ID       string            `bson:"_id"`
	Version  int64             `bson:"version"`
	Bookings []bookingDocument `bson:"bookings"`
	Blocks   []blockDocument   `bson:"blocks"`
}

type rangeDocument struct {
	CheckIn  time.Time `bson:"check_in"`
	CheckOut time.Time `bson:"check_out"`
}

type bookingDocument struct {
	ID           string                       `bson:"id"`
	GuestID      string                       `bson:"guest_id"`
	Range        rangeDocument                `bson:"range"`
	Guests       int                          `bson:"guests"`
	Status       string                       `bson:"status"`
	Price        domainpricing.PriceBreakdown `bson:"price"`
	PaidAmount   money.Money                  `bson:"paid_amount"`
	CancelledBy  *domainbooking.Actor         `bson:"cancelled_by,omitempty"`
	CancelReason string                       `bson:"cancel_reason,omitempty"`
	CreatedAt    time.Time                    `bson:"created_at"`
	UpdatedAt    time.Time                    `bson:"updated_at"`
	Version      int64                        `bson:"version"`
}

type blockDocument struct {
	Range     rangeDocument `bson:"range"`
	Reason    string        `bson:"reason"`
	CreatedBy string        `bson:"created_by"`
	CreatedAt time.Time     `bson:"created_at"`
}

func newCalendarDocument(cal *domainavailability.Calendar) calendarDocument {
	doc := calendarDocument{
		ID:       string(cal.PropertyID),
		Version:  cal.Version,
		Bookings: make([]bookingDocument, 0, len(cal.Bookings)),
		Blocks:   make([]blockDocument, 0, len(cal.Blocks)),
	}
	for _, b := range cal.Bookings {
		doc.Bookings = append(doc.Bookings, bookingDocument{
			ID:           string(b.ID),
			GuestID:      b.GuestID,
			Range:        rangeDocument{CheckIn: b.Range.CheckIn, CheckOut: b.Range.CheckOut},
			Guests:       b.Guests,
			Status:       string(b.Status),
			Price:        b.Price,
			PaidAmount:   b.PaidAmount,
			CancelledBy:  b.CancelledBy,
			CancelReason: b.CancelReason,
			CreatedAt:    b.CreatedAt,
			UpdatedAt:    b.UpdatedAt,
			Version:      b.Version,
		})
	}
	for _, blk := range cal.Blocks {
		doc.Blocks = append(doc.Blocks, blockDocument{
			Range:     rangeDocument{CheckIn: blk.Range.CheckIn, CheckOut: blk.Range.CheckOut},
			Reason:    blk.Reason,
			CreatedBy: string(blk.CreatedBy),
			CreatedAt: blk.CreatedAt,
		})
	}
	return doc
}

func (d calendarDocument) toAggregate() *domainavailability.Calendar {
	cal := domainavailability.NewCalendar(domainlistings.PropertyID(d.ID))
	cal.Version = d.Version
	for _, b := range d.Bookings {
		cal.Bookings = append(cal.Bookings, &domainbooking.Booking{
			ID:           domainbooking.BookingID(b.ID),
			PropertyID:   cal.PropertyID,
			GuestID:      b.GuestID,
			Range:        b.Range.toDomain(),
			Guests:       b.Guests,
			Status:       domainbooking.Status(b.Status),
			Price:        b.Price,
			PaidAmount:   b.PaidAmount,
			CancelledBy:  b.CancelledBy,
			CancelReason: b.CancelReason,
			CreatedAt:    b.CreatedAt.UTC(),
			UpdatedAt:    b.UpdatedAt.UTC(),
			Version:      b.Version,
		})
	}
	for _, blk := range d.Blocks {
		cal.Blocks = append(cal.Blocks, domainavailability.Block{
			Range:     blk.Range.toDomain(),
			Reason:    blk.Reason,
			CreatedBy: domainlistings.HostID(blk.CreatedBy),
			CreatedAt: blk.CreatedAt.UTC(),
		})
	}
	return cal
}

// toDomain restores UTC midnights; the driver decodes dates in local time.
func (r rangeDocument) toDomain() daterange.DateRange {
	return daterange.DateRange{CheckIn: daterange.Day(r.CheckIn.UTC()), CheckOut: daterange.Day(r.CheckOut.UTC())}
}

var _ domainavailability.Repository = (*CalendarRepository)(nil)
