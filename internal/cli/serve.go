package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"stayengine/internal/app/engine"
	"stayengine/internal/app/schedule"
	"stayengine/internal/infra/broker/kafka"
	"stayengine/internal/infra/config"
	ginserver "stayengine/internal/infra/http/gin"
	"stayengine/internal/infra/obs"
	infraoutbox "stayengine/internal/infra/outbox"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, outbox relay, payment consumer and stay completer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply schema and indexes before serving")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, migrate bool) error {
	logger := obs.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.close(context.Background(), logger)

	if migrate {
		if err := b.runMigrations(ctx); err != nil {
			return err
		}
	}
	if err := b.seedFixtures(ctx, cfg.PropertiesFixtures, logger); err != nil {
		logger.Warn("property fixtures load failed", "error", err, "path", cfg.PropertiesFixtures)
	}

	eng := engine.New(engine.Deps{
		Catalog:     b.catalog,
		Calendars:   b.calendars,
		Outbox:      b.outbox,
		Idempotency: b.idempotency,
		Logger:      logger,
		Backoff:     50 * time.Millisecond,
	})

	if len(cfg.JWTSecret) == 0 {
		logger.Warn("JWT_SECRET unset, authenticated routes will reject every request")
	}
	auth := ginserver.Authenticator{Secret: []byte(cfg.JWTSecret), Logger: logger}
	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Checks: b.checks}, ginserver.Handlers{
		Booking:        ginserver.BookingHandler{Commands: eng.Commands, Queries: eng.Queries},
		Availability:   ginserver.AvailabilityHandler{Commands: eng.Commands, Queries: eng.Queries},
		AuthMiddleware: auth.Handle,
	})

	var producer infraoutbox.Producer = infraoutbox.LogProducer{Logger: logger}
	var consumer *kafka.Consumer
	if len(cfg.KafkaBrokers) > 0 {
		p, err := kafka.NewProducer(cfg.KafkaBrokers, kafka.NewConfig("stayengine"))
		if err != nil {
			return fmt.Errorf("kafka producer: %w", err)
		}
		defer p.Close()
		producer = p

		payments := &kafka.PaymentHandler{Commands: eng.Commands, Inbox: b.inbox, Logger: logger}
		consumer, err = kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, kafka.NewConfig("stayengine"), payments, logger)
		if err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		defer consumer.Close()
	} else {
		logger.Info("KAFKA_BROKERS unset, events are logged instead of published")
	}

	worker := &infraoutbox.Worker{
		Source:      b.outbox,
		Producer:    producer,
		Logger:      logger,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		SourceName:  "stayengine",
		Backoff:     cfg.RetryBackoff,
	}
	completer := &schedule.Completer{Commands: eng.Commands, Interval: cfg.CompletionInterval, Logger: logger}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup
	errs := make(chan error, 4)
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				errs <- fmt.Errorf("%s: %w", name, err)
				cancel()
			}
		}()
	}
	run("outbox worker", worker.Run)
	run("completer", completer.Run)
	if consumer != nil {
		run("payment consumer", func(ctx context.Context) error {
			return consumer.Run(ctx, []string{cfg.PaymentTopic})
		})
	}
	run("http server", func(ctx context.Context) error {
		go func() {
			<-ctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("http shutdown failed", "error", err)
			}
		}()
		logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	wg.Wait()
	close(errs)
	var all []error
	for err := range errs {
		all = append(all, err)
	}
	logger.Info("stayengine stopped")
	return errors.Join(all...)
}
