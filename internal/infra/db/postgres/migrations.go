package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Active bookings and blocks carry exclusion constraints so two writers that
// bypass the version check still cannot double-book a night.
const schemaSQL = `
CREATE EXTENSION IF NOT EXISTS btree_gist;

CREATE TABLE IF NOT EXISTS calendars (
	property_id TEXT PRIMARY KEY,
	version BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS bookings (
	id TEXT PRIMARY KEY,
	property_id TEXT NOT NULL REFERENCES calendars(property_id) ON DELETE CASCADE,
	guest_id TEXT NOT NULL,
	check_in DATE NOT NULL,
	check_out DATE NOT NULL,
	guests INT NOT NULL,
	status TEXT NOT NULL,
	price JSONB NOT NULL,
	paid_amount BIGINT NOT NULL DEFAULT 0,
	paid_currency TEXT NOT NULL DEFAULT '',
	cancelled_by_id TEXT,
	cancelled_by_role TEXT,
	cancel_reason TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	version BIGINT NOT NULL,
	CHECK (check_out > check_in),
	CONSTRAINT bookings_no_overlap EXCLUDE USING gist (
		property_id WITH =,
		daterange(check_in, check_out, '[)') WITH &&
	) WHERE (status IN ('PENDING', 'CONFIRMED')) DEFERRABLE INITIALLY DEFERRED
);

CREATE INDEX IF NOT EXISTS idx_bookings_property ON bookings(property_id);

CREATE TABLE IF NOT EXISTS blocks (
	property_id TEXT NOT NULL REFERENCES calendars(property_id) ON DELETE CASCADE,
	check_in DATE NOT NULL,
	check_out DATE NOT NULL,
	reason TEXT NOT NULL,
	created_by TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	CHECK (check_out > check_in),
	CONSTRAINT blocks_no_overlap EXCLUDE USING gist (
		property_id WITH =,
		daterange(check_in, check_out, '[)') WITH &&
	) DEFERRABLE INITIALLY DEFERRED
);
`

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schemaSQL)
	return err
}
