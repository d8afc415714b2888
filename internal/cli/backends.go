package cli

import (
	"context"
	"fmt"
	"log/slog"

	"stayengine/internal/app/middleware"
	appoutbox "stayengine/internal/app/outbox"
	"stayengine/internal/domain/availability"
	"stayengine/internal/domain/listings"
	"stayengine/internal/infra/broker/kafka"
	"stayengine/internal/infra/config"
	mongostore "stayengine/internal/infra/db/mongo"
	"stayengine/internal/infra/db/postgres"
	"stayengine/internal/infra/inbox"
	"stayengine/internal/infra/obs"
	infraoutbox "stayengine/internal/infra/outbox"
	"stayengine/internal/infra/storage/memory"
)

// outboxStore is both ends of the outbox: the engine adds, the worker claims.
type outboxStore interface {
	appoutbox.Outbox
	infraoutbox.Source
}

// backends holds the storage selected by STORE_DRIVER. Outbox, idempotency and
// inbox live in MongoDB whenever MONGO_URI is set, in memory otherwise.
type backends struct {
	catalog     listings.Catalog
	calendars   availability.Repository
	outbox      outboxStore
	idempotency middleware.IdempotencyStore
	inbox       kafka.Inbox
	checks      map[string]obs.Check
	migrate     []func(ctx context.Context) error
	seed        func(ctx context.Context, p listings.Property) error
	closers     []func(ctx context.Context) error
}

func openBackends(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backends, error) {
	b := &backends{checks: map[string]obs.Check{}}
	memCatalog := memory.NewCatalog()
	b.catalog = memCatalog
	b.seed = func(_ context.Context, p listings.Property) error { return memCatalog.Put(p) }
	b.calendars = memory.NewCalendarRepository()
	memOutbox := memory.NewOutbox()
	memOutbox.ClaimLease = cfg.OutboxClaimLease
	b.outbox = memOutbox
	b.idempotency = memory.NewIdempotencyStore(cfg.IdempotencyTTL)
	b.inbox = memory.NewInbox()

	if cfg.MongoURI != "" {
		client, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		b.closers = append(b.closers, client.Close)
		b.checks["mongo"] = client.Ping

		box := infraoutbox.NewStore(client.DB)
		box.ClaimLease = cfg.OutboxClaimLease
		idem := mongostore.NewIdempotencyStore(client.DB, cfg.IdempotencyTTL)
		in := inbox.NewStore(client.DB, cfg.KafkaConsumerGroup)
		b.outbox, b.idempotency, b.inbox = box, idem, in
		b.migrate = append(b.migrate, box.EnsureIndexes, idem.EnsureIndexes, in.EnsureIndexes)

		if cfg.StoreDriver == config.StoreMongo {
			cals := mongostore.NewCalendarRepository(client.DB)
			catalog := mongostore.NewCatalog(client.DB)
			b.calendars, b.catalog = cals, catalog
			b.seed = func(ctx context.Context, p listings.Property) error { return catalog.Upsert(ctx, p) }
			b.migrate = append(b.migrate, cals.EnsureIndexes)
		}
		logger.Info("mongo connected", "database", cfg.MongoDB)
	}

	if cfg.StoreDriver == config.StorePostgres {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			b.close(ctx, logger)
			return nil, err
		}
		b.closers = append(b.closers, func(context.Context) error { pool.Close(); return nil })
		b.checks["postgres"] = pool.Ping
		b.calendars = postgres.NewCalendarRepository(pool)
		b.migrate = append(b.migrate, func(ctx context.Context) error { return postgres.Migrate(ctx, pool) })
		logger.Info("postgres connected")
	}
	return b, nil
}

func (b *backends) runMigrations(ctx context.Context) error {
	for _, m := range b.migrate {
		if err := m(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// seedFixtures loads properties from path into the catalog. Invalid entries are
// logged and skipped.
func (b *backends) seedFixtures(ctx context.Context, path string, logger *slog.Logger) error {
	props, err := memory.LoadFixtures(path)
	if err != nil {
		return err
	}
	if props == nil {
		logger.Info("property fixtures not found, skipping", "path", path)
		return nil
	}
	for _, p := range props {
		if err := b.seed(ctx, p); err != nil {
			logger.Error("property fixture rejected", "property_id", p.ID, "error", err)
			continue
		}
		logger.Debug("property fixture imported", "property_id", p.ID)
	}
	logger.Info("property fixtures loaded", "count", len(props), "path", path)
	return nil
}

func (b *backends) close(ctx context.Context, logger *slog.Logger) {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](ctx); err != nil {
			logger.Warn("backend close failed", "error", err)
		}
	}
}
