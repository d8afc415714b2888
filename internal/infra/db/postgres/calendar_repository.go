package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"stayengine/internal/domain/availability"
	"stayengine/internal/domain/booking"
	"stayengine/internal/domain/listings"
	"stayengine/internal/domain/shared/daterange"
	"stayengine/internal/domain/shared/money"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var bookingColumns = []string{
	"id", "property_id", "guest_id", "check_in", "check_out", "guests", "status", "price",
	"paid_amount", "paid_currency", "cancelled_by_id", "cancelled_by_role", "cancel_reason",
	"created_at", "updated_at", "version",
}

// CalendarRepository keeps the calendar version in its own row; every save
// bumps it with a compare-and-swap inside the same transaction that rewrites
// bookings and blocks.
type CalendarRepository struct {
	pool *pgxpool.Pool
}

func NewCalendarRepository(pool *pgxpool.Pool) *CalendarRepository {
	return &CalendarRepository{pool: pool}
}

func (r *CalendarRepository) Calendar(ctx context.Context, id listings.PropertyID) (*availability.Calendar, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin calendar read: %w", err)
	}
	defer tx.Rollback(ctx)

	cal := availability.NewCalendar(id)
	query, args, err := psql.Select("version").From("calendars").Where(squirrel.Eq{"property_id": string(id)}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build calendar query: %w", err)
	}
	if err := tx.QueryRow(ctx, query, args...).Scan(&cal.Version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cal, nil
		}
		return nil, fmt.Errorf("load calendar version: %w", err)
	}
	if cal.Bookings, err = r.loadBookings(ctx, tx, id); err != nil {
		return nil, err
	}
	if cal.Blocks, err = r.loadBlocks(ctx, tx, id); err != nil {
		return nil, err
	}
	return cal, tx.Commit(ctx)
}

func (r *CalendarRepository) loadBookings(ctx context.Context, tx pgx.Tx, id listings.PropertyID) ([]*booking.Booking, error) {
	query, args, err := psql.Select(bookingColumns...).From("bookings").
		Where(squirrel.Eq{"property_id": string(id)}).
		OrderBy("check_in", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build bookings query: %w", err)
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var out []*booking.Booking
	for rows.Next() {
		var (
			b                 booking.Booking
			checkIn, checkOut time.Time
			priceJSON         []byte
			paid              int64
			paidCurrency      string
			byID, byRole      *string
		)
		if err := rows.Scan(
			&b.ID, &b.PropertyID, &b.GuestID, &checkIn, &checkOut, &b.Guests, &b.Status, &priceJSON,
			&paid, &paidCurrency, &byID, &byRole, &b.CancelReason,
			&b.CreatedAt, &b.UpdatedAt, &b.Version,
		); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		b.Range = daterange.DateRange{CheckIn: daterange.Day(checkIn), CheckOut: daterange.Day(checkOut)}
		if err := json.Unmarshal(priceJSON, &b.Price); err != nil {
			return nil, fmt.Errorf("decode booking %s price: %w", b.ID, err)
		}
		b.PaidAmount = money.Money{Amount: paid, Currency: paidCurrency}
		if byID != nil && byRole != nil {
			b.CancelledBy = &booking.Actor{ID: *byID, Role: booking.Role(*byRole)}
		}
		b.CreatedAt = b.CreatedAt.UTC()
		b.UpdatedAt = b.UpdatedAt.UTC()
		out = append(out, &b)
	}
	return out, rows.Err()
}

func (r *CalendarRepository) loadBlocks(ctx context.Context, tx pgx.Tx, id listings.PropertyID) ([]availability.Block, error) {
	query, args, err := psql.Select("check_in", "check_out", "reason", "created_by", "created_at").
		From("blocks").
		Where(squirrel.Eq{"property_id": string(id)}).
		OrderBy("check_in").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build blocks query: %w", err)
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list blocks: %w", err)
	}
	defer rows.Close()

	var out []availability.Block
	for rows.Next() {
		var (
			blk               availability.Block
			checkIn, checkOut time.Time
		)
		if err := rows.Scan(&checkIn, &checkOut, &blk.Reason, &blk.CreatedBy, &blk.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan block: %w", err)
		}
		blk.Range = daterange.DateRange{CheckIn: daterange.Day(checkIn), CheckOut: daterange.Day(checkOut)}
		blk.CreatedAt = blk.CreatedAt.UTC()
		out = append(out, blk)
	}
	return out, rows.Err()
}

func (r *CalendarRepository) Save(ctx context.Context, cal *availability.Calendar) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin calendar save: %w", err)
	}
	defer tx.Rollback(ctx)

	next := cal.Version + 1
	if err := r.bumpVersion(ctx, tx, cal.PropertyID, cal.Version, next); err != nil {
		return err
	}
	if err := r.upsertBookings(ctx, tx, cal, next); err != nil {
		return mapWriteError(err)
	}
	if err := r.replaceBlocks(ctx, tx, cal); err != nil {
		return mapWriteError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return mapWriteError(err)
	}
	cal.Version = next
	for _, b := range cal.Bookings {
		b.Version = next
	}
	return nil
}

func (r *CalendarRepository) bumpVersion(ctx context.Context, tx pgx.Tx, id listings.PropertyID, current, next int64) error {
	var (
		query string
		args  []any
		err   error
	)
	if current == 0 {
		query, args, err = psql.Insert("calendars").Columns("property_id", "version").
			Values(string(id), next).
			Suffix("ON CONFLICT (property_id) DO NOTHING").
			ToSql()
	} else {
		query, args, err = psql.Update("calendars").Set("version", next).
			Where(squirrel.Eq{"property_id": string(id), "version": current}).
			ToSql()
	}
	if err != nil {
		return fmt.Errorf("build version query: %w", err)
	}
	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("bump calendar version: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return availability.ErrConcurrentUpdate
	}
	return nil
}

// maxBindParams is the PostgreSQL wire protocol limit per statement.
const maxBindParams = 65535

// bookingBatchRows keeps a multi-row booking upsert well under maxBindParams.
const bookingBatchRows = 1000

const blockBatchRows = 5000

type statement struct {
	sql  string
	args []any
}

func (r *CalendarRepository) upsertBookings(ctx context.Context, tx pgx.Tx, cal *availability.Calendar, version int64) error {
	stmts, err := bookingUpserts(cal, version)
	if err != nil {
		return err
	}
	for _, st := range stmts {
		if _, err := tx.Exec(ctx, st.sql, st.args...); err != nil {
			return fmt.Errorf("upsert bookings: %w", err)
		}
	}
	return nil
}

func bookingUpserts(cal *availability.Calendar, version int64) ([]statement, error) {
	var out []statement
	for _, batch := range batches(cal.Bookings, bookingBatchRows) {
		insert := psql.Insert("bookings").Columns(bookingColumns...)
		for _, b := range batch {
			price, err := json.Marshal(b.Price)
			if err != nil {
				return nil, fmt.Errorf("encode booking %s price: %w", b.ID, err)
			}
			var byID, byRole *string
			if b.CancelledBy != nil {
				id, role := b.CancelledBy.ID, string(b.CancelledBy.Role)
				byID, byRole = &id, &role
			}
			insert = insert.Values(
				string(b.ID), string(cal.PropertyID), b.GuestID, b.Range.CheckIn, b.Range.CheckOut, b.Guests,
				string(b.Status), price, b.PaidAmount.Amount, b.PaidAmount.Currency, byID, byRole, b.CancelReason,
				b.CreatedAt, b.UpdatedAt, version,
			)
		}
		query, args, err := insert.Suffix(`ON CONFLICT (id) DO UPDATE SET
		status = EXCLUDED.status,
		paid_amount = EXCLUDED.paid_amount,
		paid_currency = EXCLUDED.paid_currency,
		cancelled_by_id = EXCLUDED.cancelled_by_id,
		cancelled_by_role = EXCLUDED.cancelled_by_role,
		cancel_reason = EXCLUDED.cancel_reason,
		updated_at = EXCLUDED.updated_at,
		version = EXCLUDED.version`).ToSql()
		if err != nil {
			return nil, fmt.Errorf("build bookings upsert: %w", err)
		}
		out = append(out, statement{sql: query, args: args})
	}
	return out, nil
}

func (r *CalendarRepository) replaceBlocks(ctx context.Context, tx pgx.Tx, cal *availability.Calendar) error {
	query, args, err := psql.Delete("blocks").Where(squirrel.Eq{"property_id": string(cal.PropertyID)}).ToSql()
	if err != nil {
		return fmt.Errorf("build blocks delete: %w", err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete blocks: %w", err)
	}
	for _, batch := range batches(cal.Blocks, blockBatchRows) {
		insert := psql.Insert("blocks").Columns("property_id", "check_in", "check_out", "reason", "created_by", "created_at")
		for _, blk := range batch {
			insert = insert.Values(string(cal.PropertyID), blk.Range.CheckIn, blk.Range.CheckOut, blk.Reason, string(blk.CreatedBy), blk.CreatedAt)
		}
		query, args, err = insert.ToSql()
		if err != nil {
			return fmt.Errorf("build blocks insert: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("insert blocks: %w", err)
		}
	}
	return nil
}

// batches splits items into consecutive slices of at most size elements.
func batches[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = 1
	}
	var out [][]T
	for len(items) > 0 {
		n := min(size, len(items))
		out = append(out, items[:n:n])
		items = items[n:]
	}
	return out
}

func (r *CalendarRepository) PropertyOf(ctx context.Context, id booking.BookingID) (listings.PropertyID, error) {
	query, args, err := psql.Select("property_id").From("bookings").Where(squirrel.Eq{"id": string(id)}).ToSql()
	if err != nil {
		return "", fmt.Errorf("build booking lookup: %w", err)
	}
	var property string
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&property); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("%w: %s", booking.ErrNotFound, id)
		}
		return "", fmt.Errorf("lookup booking property: %w", err)
	}
	return listings.PropertyID(property), nil
}

func (r *CalendarRepository) PropertyIDs(ctx context.Context) ([]listings.PropertyID, error) {
	query, args, err := psql.Select("property_id").From("calendars").OrderBy("property_id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build calendars query: %w", err)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}
	defer rows.Close()
	var ids []listings.PropertyID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan calendar id: %w", err)
		}
		ids = append(ids, listings.PropertyID(id))
	}
	return ids, rows.Err()
}

// mapWriteError turns storage constraint failures into domain errors.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.ExclusionViolation:
		if pgErr.ConstraintName == "blocks_no_overlap" {
			return fmt.Errorf("%w: %s", availability.ErrConflict, pgErr.Detail)
		}
		return fmt.Errorf("%w: %s", availability.ErrDateConflict, pgErr.Detail)
	case pgerrcode.UniqueViolation, pgerrcode.SerializationFailure:
		return availability.ErrConcurrentUpdate
	}
	return err
}

var _ availability.Repository = (*CalendarRepository)(nil)
