package testutil

import (
	"slotkeeper/pkg/config"
	"slotkeeper/pkg/logger"
)

// NewConfig returns a Config with default values and a discarding logger.
// No store clients are attached.
func NewConfig() *config.Config {
	return &config.Config{
		MongoDatabaseName: config.DefaultMongoDatabaseName,
		ReadTimeout:       config.DefaultReadTimeout,
		WriteTimeout:      config.DefaultWriteTimeout,

		LockBackend:     config.DefaultLockBackend,
		LockTTL:         config.DefaultLockTTL,
		LockGranularity: config.DefaultLockGranularity,
		BookingTimeout:  config.DefaultBookingTimeout,

		CacheHorizonDays:      config.DefaultCacheHorizonDays,
		CacheWriteBack:        config.DefaultCacheWriteBack,
		PrecomputeInterval:    config.DefaultPrecomputeInterval,
		PrecomputeRate:        1000,
		PrecomputeConcurrency: config.DefaultPrecomputeConcurrency,

		SearchConcurrency:  config.DefaultSearchConcurrency,
		MaxDaysLookahead:   config.DefaultMaxDaysLookahead,
		MaxOptimalResults:  config.DefaultMaxOptimalResults,
		DefaultDurationMin: config.DefaultDefaultDurationMin,

		Log: logger.Discard(),
	}
}
