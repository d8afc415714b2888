package engine

import (
	"log/slog"
	"time"

	"stayengine/internal/app/commands"
	"stayengine/internal/app/dto"
	availabilityapp "stayengine/internal/app/handlers/availability"
	bookingapp "stayengine/internal/app/handlers/booking"
	"stayengine/internal/app/handlers/support"
	"stayengine/internal/app/locks"
	"stayengine/internal/app/middleware"
	"stayengine/internal/app/outbox"
	"stayengine/internal/app/policies"
	"stayengine/internal/app/queries"
	"stayengine/internal/domain/availability"
	"stayengine/internal/domain/listings"
)

type Deps struct {
	Catalog     listings.Catalog
	Calendars   availability.Repository
	Outbox      outbox.Outbox
	Idempotency middleware.IdempotencyStore
	Clock       support.Clock
	Logger      *slog.Logger
	MaxAttempts int
	Backoff     time.Duration
}

// Engine exposes the booking engine as a command bus and a query bus with
// their middleware already applied.
type Engine struct {
	Commands commands.Bus
	Queries  queries.Bus
	Writer   *support.CalendarWriter
}

func New(d Deps) *Engine {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := d.Clock
	if clock == nil {
		clock = support.SystemClock
	}

	writer := &support.CalendarWriter{
		Calendars:   d.Calendars,
		Locks:       locks.NewKeyed(),
		Outbox:      d.Outbox,
		Encoder:     outbox.JSONEventEncoder{},
		Logger:      logger,
		MaxAttempts: d.MaxAttempts,
		Backoff:     d.Backoff,
	}

	commandBus := commands.NewInMemoryBus()
	create := &bookingapp.CreateBookingHandler{Catalog: d.Catalog, Calendars: writer, Clock: clock, Logger: logger}
	commands.RegisterHandler(commandBus, bookingapp.CreateBookingCommand{}.Key(), create)

	transitions := &bookingapp.TransitionHandler{Catalog: d.Catalog, Calendars: writer, Clock: clock, Logger: logger}
	commands.RegisterHandler(commandBus, bookingapp.ConfirmBookingCommand{}.Key(),
		commands.HandlerFunc[bookingapp.ConfirmBookingCommand, *dto.Booking](transitions.Confirm))
	commands.RegisterHandler(commandBus, bookingapp.CancelBookingCommand{}.Key(),
		commands.HandlerFunc[bookingapp.CancelBookingCommand, *dto.Booking](transitions.Cancel))
	commands.RegisterHandler(commandBus, bookingapp.RecordPaymentCommand{}.Key(),
		commands.HandlerFunc[bookingapp.RecordPaymentCommand, *dto.Booking](transitions.RecordPayment))

	completer := &bookingapp.CompleteStaysHandler{Calendars: writer, Clock: clock, Logger: logger}
	commands.RegisterHandler(commandBus, bookingapp.CompleteStaysCommand{}.Key(), completer)

	blocks := &availabilityapp.BlockHandler{Calendars: writer, Clock: clock, Logger: logger}
	commands.RegisterHandler(commandBus, availabilityapp.AddBlockCommand{}.Key(),
		commands.HandlerFunc[availabilityapp.AddBlockCommand, *dto.Block](blocks.Add))
	commands.RegisterHandler(commandBus, availabilityapp.RemoveBlockCommand{}.Key(),
		commands.HandlerFunc[availabilityapp.RemoveBlockCommand, *availabilityapp.RemoveBlockResult](blocks.Remove))

	queryBus := queries.NewInMemoryBus()
	reads := &availabilityapp.QueryHandler{Catalog: d.Catalog, Calendars: d.Calendars, Clock: clock}
	queries.RegisterHandler(queryBus, availabilityapp.CheckAvailabilityQuery{}.Key(),
		queries.HandlerFunc[availabilityapp.CheckAvailabilityQuery, *dto.Availability](reads.Check))
	queries.RegisterHandler(queryBus, availabilityapp.QuoteQuery{}.Key(),
		queries.HandlerFunc[availabilityapp.QuoteQuery, *dto.Quote](reads.Quote))
	queries.RegisterHandler(queryBus, availabilityapp.BuildMonthQuery{}.Key(),
		queries.HandlerFunc[availabilityapp.BuildMonthQuery, *dto.CalendarMonth](reads.BuildMonth))
	queries.RegisterHandler(queryBus, availabilityapp.MonthlyStatsQuery{}.Key(),
		queries.HandlerFunc[availabilityapp.MonthlyStatsQuery, *dto.MonthlyStats](reads.MonthlyStats))
	queries.RegisterHandler(queryBus, bookingapp.GetBookingQuery{}.Key(),
		&bookingapp.GetBookingHandler{Calendars: d.Calendars, Catalog: d.Catalog})

	validator := middleware.NewStructValidator()
	authorizer := policies.PropertyHostAuthorizer{Catalog: d.Catalog}

	cmdMiddleware := []middleware.CommandMiddleware{
		middleware.Logging(logger),
		middleware.Validation(validator),
		middleware.Authorization(authorizer),
	}
	if d.Idempotency != nil {
		cmdMiddleware = append(cmdMiddleware, middleware.Idempotency(d.Idempotency, nil))
	}
	if d.Outbox != nil {
		cmdMiddleware = append(cmdMiddleware, middleware.OutboxFlush(d.Outbox, logger))
	}

	return &Engine{
		Commands: middleware.ChainCommands(commandBus, cmdMiddleware...),
		Queries: middleware.ChainQueries(queryBus,
			middleware.QueryLogging(logger),
			middleware.QueryValidation(validator),
			middleware.QueryAuthorization(authorizer),
		),
		Writer: writer,
	}
}
