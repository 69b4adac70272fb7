package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/cassiomorais/reminders/internal/bootstrap"
	domainErrors "github.com/cassiomorais/reminders/internal/domain/errors"
	infraRedis "github.com/cassiomorais/reminders/internal/infrastructure/redis"
	"github.com/cassiomorais/reminders/internal/notifier"
	"github.com/cassiomorais/reminders/internal/service"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "reminders-worker", "reminders_worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	workerCfg := app.Config.Worker
	consumer := infraRedis.NewStreamConsumer(
		app.Redis,
		infraRedis.DeliveryStream,
		workerCfg.ConsumerGroup,
		app.Config.InstanceID,
		workerCfg.BatchSize,
		workerCfg.BlockDuration,
	)

	senders := notifier.NewFactory(app.Metrics)
	delivery := service.NewDeliveryService(
		consumer,
		app.Producer,
		senders,
		app.Dispatcher,
		app.Metrics,
		app.Logger,
	)

	// Events persisted but never processed (crash before fan-out completed)
	// are picked up before the worker starts consuming new work.
	if count, err := app.Recovery.Recover(ctx, 0); err != nil {
		if !errors.Is(err, domainErrors.ErrLockAcquisitionFailed) {
			app.Logger.Error().Err(err).Msg("Startup recovery failed")
		}
	} else if count > 0 {
		app.Logger.Info().Int("count", count).Msg("Startup recovery complete")
	}

	app.Logger.Info().
		Str("stream", infraRedis.DeliveryStream).
		Str("group", workerCfg.ConsumerGroup).
		Str("consumer", app.Config.InstanceID).
		Msg("Worker started, listening for deliveries...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	// 1. Delivery consumer (reads from Redis Streams).
	g.Go(func() error {
		return delivery.Run(gCtx)
	})

	// 2. Periodic recovery of unprocessed stored events.
	g.Go(func() error {
		return app.Recovery.RunLoop(gCtx, app.Config.Events.RecoveryInterval)
	})

	// 3. Wait for shutdown signal.
	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		case <-quit:
			app.Logger.Info().Msg("Shutting down worker...")
			cancel()
			return nil
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		app.Logger.Error().Err(err).Msg("Worker error")
	}
	app.Logger.Info().Msg("Worker exited")
}
