package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayengine/internal/app/commands"
	"stayengine/internal/app/dto"
	"stayengine/internal/app/engine"
	bookingapp "stayengine/internal/app/handlers/booking"
	"stayengine/internal/app/queries"
	domainbooking "stayengine/internal/domain/booking"
	"stayengine/internal/domain/listings"
	"stayengine/internal/domain/shared/daterange"
	"stayengine/internal/domain/shared/money"
	"stayengine/internal/infra/storage/memory"
)

func newPaymentFixture(t *testing.T, instant bool) (*engine.Engine, *PaymentHandler, *dto.Booking) {
	t.Helper()
	catalog := memory.NewCatalog()
	require.NoError(t, catalog.Put(listings.Property{
		ID:        "prop-1",
		Host:      "host-1",
		MaxGuests: 2,
		Pricing: listings.PricingConfig{
			BasePricePerNight:  money.Must(40000, "EUR"),
			MinStayNights:      1,
			InstantBookEnabled: instant,
		},
	}))
	eng := engine.New(engine.Deps{
		Catalog:   catalog,
		Calendars: memory.NewCalendarRepository(),
		Outbox:    memory.NewOutbox(),
		Clock:     func() time.Time { return time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC) },
	})
	r, err := daterange.Parse("2025-03-10", "2025-03-12")
	require.NoError(t, err)
	b, err := commands.Dispatch[bookingapp.CreateBookingCommand, *dto.Booking](context.Background(), eng.Commands, bookingapp.CreateBookingCommand{
		PropertyID: "prop-1", GuestID: "guest-1", Range: r, Guests: 1,
	})
	require.NoError(t, err)
	return eng, &PaymentHandler{Commands: eng.Commands, Inbox: memory.NewInbox()}, b
}

func message(t *testing.T, ev PaymentEvent) *sarama.ConsumerMessage {
	t.Helper()
	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	return &sarama.ConsumerMessage{Topic: "payment.events.v1", Value: raw}
}

func lookup(t *testing.T, eng *engine.Engine, id string) *dto.Booking {
	t.Helper()
	b, err := queries.Ask[bookingapp.GetBookingQuery, *dto.Booking](context.Background(), eng.Queries, bookingapp.GetBookingQuery{
		BookingID: id, Actor: domainbooking.System,
	})
	require.NoError(t, err)
	return b
}

func TestPaymentCapturedConfirmsPendingBooking(t *testing.T) {
	eng, h, b := newPaymentFixture(t, false)
	require.Equal(t, "PENDING", b.Status)

	err := h.Handle(context.Background(), message(t, PaymentEvent{
		EventID: "evt-1", Type: PaymentCaptured, BookingID: b.ID, Amount: b.Total.Amount, Currency: "EUR",
	}))
	require.NoError(t, err)

	got := lookup(t, eng, b.ID)
	assert.Equal(t, "CONFIRMED", got.Status)
	assert.Equal(t, b.Total.Amount, got.Paid.Amount)
}

func TestPaymentCapturedOnInstantBookingOnlyRecordsPayment(t *testing.T) {
	eng, h, b := newPaymentFixture(t, true)
	require.Equal(t, "CONFIRMED", b.Status)

	require.NoError(t, h.Handle(context.Background(), message(t, PaymentEvent{
		EventID: "evt-1", Type: PaymentCaptured, BookingID: b.ID, Amount: 80000, Currency: "EUR",
	})))
	got := lookup(t, eng, b.ID)
	assert.Equal(t, "CONFIRMED", got.Status)
	assert.Equal(t, int64(80000), got.Paid.Amount)
}

func TestPaymentFailedCancelsAsSystem(t *testing.T) {
	eng, h, b := newPaymentFixture(t, false)

	require.NoError(t, h.Handle(context.Background(), message(t, PaymentEvent{
		EventID: "evt-2", Type: PaymentFailed, BookingID: b.ID,
	})))
	got := lookup(t, eng, b.ID)
	assert.Equal(t, "CANCELLED", got.Status)
	require.NotNil(t, got.CancelledBy)
	assert.Equal(t, "system", got.CancelledBy.Role)
}

func TestDuplicatePaymentEventIsIgnored(t *testing.T) {
	eng, h, b := newPaymentFixture(t, false)
	ev := PaymentEvent{EventID: "evt-3", Type: PaymentFailed, BookingID: b.ID}

	require.NoError(t, h.Handle(context.Background(), message(t, ev)))
	first := lookup(t, eng, b.ID)
	require.NoError(t, h.Handle(context.Background(), message(t, ev)))
	second := lookup(t, eng, b.ID)
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt)
}

func TestRejectedPaymentsAreAcknowledged(t *testing.T) {
	_, h, b := newPaymentFixture(t, false)
	ctx := context.Background()

	assert.NoError(t, h.Handle(ctx, &sarama.ConsumerMessage{Value: []byte("{not json")}))
	assert.NoError(t, h.Handle(ctx, message(t, PaymentEvent{EventID: "evt-4", Type: PaymentCaptured, BookingID: "missing", Amount: 1, Currency: "EUR"})))
	assert.NoError(t, h.Handle(ctx, message(t, PaymentEvent{EventID: "evt-5", Type: PaymentCaptured, BookingID: b.ID, Amount: 1, Currency: "USD"})))
	assert.NoError(t, h.Handle(ctx, message(t, PaymentEvent{EventID: "evt-6", Type: "payment.refunded", BookingID: b.ID})))
}
