package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	cacherepo "slotkeeper/internal/availability/cache/repository"
	cacheservice "slotkeeper/internal/availability/cache/service"
	bookingrepo "slotkeeper/internal/bookings/repository"
	calendarrepo "slotkeeper/internal/calendar/repository"
	calendarservice "slotkeeper/internal/calendar/service"
	calendarvalidator "slotkeeper/internal/calendar/validator"
	"slotkeeper/internal/precompute"
	"slotkeeper/pkg/clock"
	"slotkeeper/pkg/config"
	"slotkeeper/pkg/kafka"
	kafka_config "slotkeeper/pkg/kafka/config"
	kafka_middleware "slotkeeper/pkg/kafka/middleware"
)

const (
	ServiceName   = "availability-precompute"
	ConsumerGroup = "availability-precompute"

	statusLogInterval = time.Minute
)

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		cfg.Log.Info("Shutdown signal received", "signal", sig)
		cancel()
	}()

	clk := clock.System()
	reservations := bookingrepo.NewMongoReservationRepository(cfg)
	serviceRepo := calendarrepo.NewMongoServiceRepository(cfg)
	calendar := calendarservice.NewCalendarService(
		calendarrepo.NewMongoWorkingHoursRepository(cfg),
		reservations,
		calendarvalidator.NewWorkingHoursValidator(cfg.Log),
		cfg,
	)
	cache := cacheservice.NewCacheService(cacherepo.NewMongoCacheRepository(cfg), calendar, serviceRepo, cfg, clk)

	var wg sync.WaitGroup
	if cfg.KafkaEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			consumeEvents(ctx, cfg, cache)
		}()
	}

	cfg.Log.Info("Starting availability precompute worker",
		"interval", cfg.PrecomputeInterval,
		"horizon_days", cfg.CacheHorizonDays,
		"kafka_enabled", cfg.KafkaEnabled,
	)
	precompute.NewWorker(calendar, cache, cfg, clk).Run(ctx)

	wg.Wait()
	cfg.Log.Info("Precompute worker stopped")
}

// consumeEvents applies reservation events to the cache until ctx ends.
func consumeEvents(ctx context.Context, cfg *config.Config, cache cacheservice.CacheService) {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	handler := precompute.NewEventHandler(cache, cfg)
	consumer, err := kafka.NewConsumer(kafkaCfg, cfg.Log, cfg.ReservationEventsTopic, ConsumerGroup, handler.Handle)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	defer func() {
		if err := consumer.Close(); err != nil {
			cfg.Log.Warn("Failed to close Kafka consumer", "error", err)
		}
	}()

	counters := &kafka_middleware.Counters{}
	consumer.Use(counters.ConsumerMiddleware())
	if kafkaCfg.EnableMiddleware {
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
	}
	go logStatus(ctx, cfg, consumer, counters)

	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Kafka consumer stopped", "error", err)
	}
}

func logStatus(ctx context.Context, cfg *config.Config, consumer *kafka.Consumer, counters *kafka_middleware.Counters) {
	ticker := time.NewTicker(statusLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := counters.Snapshot()
			cfg.Log.Info("Reservation event consumer status",
				"consumed", s.Consumed,
				"failed", s.ConsumeFailed,
				"avg_duration", s.AvgConsumeDuration,
				"lag", consumer.Lag(),
			)
		}
	}
}
