package main

import (
	cacherepo "slotkeeper/internal/availability/cache/repository"
	cacheservice "slotkeeper/internal/availability/cache/service"
	bookinghandler "slotkeeper/internal/bookings/handler"
	bookingrepo "slotkeeper/internal/bookings/repository"
	bookingservice "slotkeeper/internal/bookings/service"
	bookingvalidator "slotkeeper/internal/bookings/validator"
	calendarrepo "slotkeeper/internal/calendar/repository"
	calendarservice "slotkeeper/internal/calendar/service"
	calendarvalidator "slotkeeper/internal/calendar/validator"
	"slotkeeper/internal/conflicts"
	"slotkeeper/internal/events"
	lockrepo "slotkeeper/internal/locks/repository"
	lockservice "slotkeeper/internal/locks/service"
	schedulerhandler "slotkeeper/internal/scheduler/handler"
	schedulerservice "slotkeeper/internal/scheduler/service"
	schedulervalidator "slotkeeper/internal/scheduler/validator"
	"slotkeeper/pkg/app"
	"slotkeeper/pkg/clock"
	"slotkeeper/pkg/config"
	"slotkeeper/pkg/kafka"
	kafka_config "slotkeeper/pkg/kafka/config"
	kafka_middleware "slotkeeper/pkg/kafka/middleware"
)

const ServiceName = "availability"

type services struct {
	bookings  bookingservice.BookingService
	scheduler schedulerservice.SchedulerService
	locks     lockrepo.LockRepository
	producer  *kafka.Producer
}

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	if cfg.UsesRedisLocks() {
		cfg.SetRedis()
	}
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Availability service")
	svc := initServices(cfg)
	if svc.producer != nil {
		defer svc.producer.Close()
	}

	health := app.NewHealthHandler(map[string]app.Pinger{
		"mongo": cfg.Client.Mongo,
		"locks": svc.locks,
	}, cfg.Log)

	serverApp := app.NewApplication()
	serverApp.SetApp(cfg, health,
		bookinghandler.NewBookingHandler(svc.bookings, cfg.Log),
		schedulerhandler.NewSchedulerHandler(svc.scheduler, cfg.Log),
	)
	serverApp.Run()
}

func initServices(cfg *config.Config) services {
	clk := clock.System()

	reservations := bookingrepo.NewMongoReservationRepository(cfg)
	workingHours := calendarrepo.NewMongoWorkingHoursRepository(cfg)
	serviceRepo := calendarrepo.NewMongoServiceRepository(cfg)

	var locks lockrepo.LockRepository
	if cfg.UsesRedisLocks() {
		locks = lockrepo.NewRedisLockRepository(cfg)
	} else {
		locks = lockrepo.NewMongoLockRepository(cfg)
	}

	calendar := calendarservice.NewCalendarService(workingHours, reservations, calendarvalidator.NewWorkingHoursValidator(cfg.Log), cfg)
	cache := cacheservice.NewCacheService(cacherepo.NewMongoCacheRepository(cfg), calendar, serviceRepo, cfg, clk)

	publisher, producer := initPublisher(cfg)

	bookings := bookingservice.NewBookingService(
		reservations,
		lockservice.NewLockService(locks, cfg, clk),
		conflicts.NewChecker(reservations, cfg),
		cache,
		calendar,
		publisher,
		bookingvalidator.NewBookingValidator(cfg.Log),
		cfg,
	)
	scheduler := schedulerservice.NewSchedulerService(
		cache,
		calendar,
		serviceRepo,
		schedulervalidator.NewSearchValidator(cfg.Log, cfg.MaxDaysLookahead),
		cfg,
	)

	cfg.Log.Info("Availability services initialized",
		"database", cfg.MongoDatabaseName,
		"lock_backend", cfg.LockBackend,
		"kafka_enabled", cfg.KafkaEnabled,
	)
	return services{bookings: bookings, scheduler: scheduler, locks: locks, producer: producer}
}

func initPublisher(cfg *config.Config) (events.Publisher, *kafka.Producer) {
	if !cfg.KafkaEnabled {
		return events.NewNoopPublisher(), nil
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.Log, cfg.ReservationEventsTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	}
	return events.NewKafkaPublisher(producer, cfg.Log), producer
}
