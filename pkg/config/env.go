package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvLockBackend     = "LOCK_BACKEND"
	EnvLockTTL         = "LOCK_TTL"
	EnvLockGranularity = "LOCK_GRANULARITY"
	EnvRedisAddr       = "REDIS_ADDR"
	EnvRedisPassword   = "REDIS_PASSWORD"
	EnvRedisDB         = "REDIS_DB"

	EnvBookingTimeout = "BOOKING_TIMEOUT"

	EnvCacheHorizonDays      = "CACHE_HORIZON_DAYS"
	EnvCacheWriteBack        = "CACHE_WRITE_BACK"
	EnvPrecomputeInterval    = "PRECOMPUTE_INTERVAL"
	EnvPrecomputeRate        = "PRECOMPUTE_RATE"
	EnvPrecomputeConcurrency = "PRECOMPUTE_CONCURRENCY"

	EnvSearchConcurrency  = "SEARCH_CONCURRENCY"
	EnvMaxDaysLookahead   = "MAX_DAYS_LOOKAHEAD"
	EnvMaxOptimalResults  = "MAX_OPTIMAL_RESULTS"
	EnvDefaultDurationMin = "DEFAULT_DURATION_MIN"

	EnvKafkaEnabled           = "KAFKA_ENABLED"
	EnvReservationEventsTopic = "RESERVATION_EVENTS_TOPIC"
)
