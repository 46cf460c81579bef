package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "slotkeeper"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 10 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 64 * 1024 // 64KB

	DefaultReadTimeout     = 5 * time.Second
	DefaultWriteTimeout    = 5 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	LockBackendMongo = "mongo"
	LockBackendRedis = "redis"

	DefaultLockBackend     = LockBackendMongo
	DefaultLockTTL         = 2 * time.Minute
	DefaultLockGranularity = time.Minute
	DefaultRedisAddr       = "localhost:6379"
	DefaultRedisDB         = 0

	DefaultBookingTimeout = 5 * time.Second

	DefaultCacheHorizonDays      = 14
	DefaultCacheWriteBack        = true
	DefaultPrecomputeInterval    = 15 * time.Minute
	DefaultPrecomputeRate        = 20 // resource-days per second
	DefaultPrecomputeConcurrency = 4

	DefaultSearchConcurrency  = 8
	DefaultMaxDaysLookahead   = 60
	DefaultMaxOptimalResults  = 50
	DefaultDefaultDurationMin = 30

	DefaultKafkaEnabled           = false
	DefaultReservationEventsTopic = "reservation-events"
)
