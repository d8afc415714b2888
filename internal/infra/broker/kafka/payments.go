package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"

	"stayengine/internal/app/commands"
	"stayengine/internal/app/dto"
	bookingapp "stayengine/internal/app/handlers/booking"
	domainbooking "stayengine/internal/domain/booking"
	"stayengine/internal/domain/shared/money"
)

const (
	PaymentCaptured = "payment.captured"
	PaymentFailed   = "payment.failed"
)

var ErrMalformedPayment = errors.New("kafka: malformed payment event")

// PaymentEvent is the payment collaborator's outcome message.
type PaymentEvent struct {
	EventID   string `json:"event_id"`
	Type      string `json:"type"`
	BookingID string `json:"booking_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

// Inbox records consumed event ids.
type Inbox interface {
	TryBegin(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// PaymentHandler confirms paid bookings and cancels bookings whose payment
// failed. Domain rejections are logged and acknowledged; infrastructure errors
// release the inbox entry and are returned so the message is redelivered.
type PaymentHandler struct {
	Commands commands.Bus
	Inbox    Inbox
	Logger   *slog.Logger
}

func (h *PaymentHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var ev PaymentEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		h.logger().Warn("payment event dropped", "offset", msg.Offset, "error", err)
		return nil
	}
	if ev.EventID == "" || ev.BookingID == "" {
		h.logger().Warn("payment event dropped", "offset", msg.Offset, "error", ErrMalformedPayment)
		return nil
	}
	fresh, err := h.Inbox.TryBegin(ctx, ev.EventID)
	if err != nil {
		return err
	}
	if !fresh {
		h.logger().Debug("payment event already processed", "event_id", ev.EventID)
		return nil
	}
	if err := h.process(ctx, ev); err != nil {
		if rejected(err) {
			h.logger().Warn("payment event rejected", "event_id", ev.EventID, "booking_id", ev.BookingID, "type", ev.Type, "error", err)
			return nil
		}
		if ferr := h.Inbox.Forget(ctx, ev.EventID); ferr != nil {
			return errors.Join(err, ferr)
		}
		return err
	}
	return nil
}

func (h *PaymentHandler) process(ctx context.Context, ev PaymentEvent) error {
	switch ev.Type {
	case PaymentCaptured:
		amount, err := money.New(ev.Amount, ev.Currency)
		if err != nil {
			return err
		}
		paid, err := commands.Dispatch[bookingapp.RecordPaymentCommand, *dto.Booking](ctx, h.Commands, bookingapp.RecordPaymentCommand{
			BookingID: ev.BookingID,
			Amount:    amount,
		})
		if err != nil {
			return err
		}
		if paid.Status == string(domainbooking.StatusConfirmed) {
			h.logger().Info("payment recorded", "booking_id", ev.BookingID, "amount", amount.String())
			return nil
		}
		_, err = commands.Dispatch[bookingapp.ConfirmBookingCommand, *dto.Booking](ctx, h.Commands, bookingapp.ConfirmBookingCommand{
			BookingID: ev.BookingID,
			Actor:     domainbooking.System,
		})
		if err != nil {
			return err
		}
		h.logger().Info("booking confirmed by payment", "booking_id", ev.BookingID, "amount", amount.String())
		return nil
	case PaymentFailed:
		_, err := commands.Dispatch[bookingapp.CancelBookingCommand, *dto.Booking](ctx, h.Commands, bookingapp.CancelBookingCommand{
			BookingID: ev.BookingID,
			Actor:     domainbooking.System,
			Reason:    "payment failed",
		})
		if err != nil {
			return err
		}
		h.logger().Info("booking cancelled by failed payment", "booking_id", ev.BookingID)
		return nil
	}
	return fmt.Errorf("%w: unknown type %q", ErrMalformedPayment, ev.Type)
}

func rejected(err error) bool {
	return errors.Is(err, domainbooking.ErrNotFound) ||
		errors.Is(err, domainbooking.ErrInvalidTransition) ||
		errors.Is(err, money.ErrCurrencyMismatch) ||
		errors.Is(err, money.ErrInvalidCurrency) ||
		errors.Is(err, ErrMalformedPayment)
}

func (h *PaymentHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var _ MessageHandler = (*PaymentHandler)(nil)
