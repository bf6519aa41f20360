// Package data provides data access layer implementations.
// It owns the counter stores, the transition journal, and the HTTP transport.
package data

import (
	"GuardLane/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewData,
	NewRedisClient,
	NewMySQLClient,
)

// Data contains all data layer dependencies.
type Data struct {
	// redisClient is the Redis client backing shared rate windows
	redisClient *redis.Client
	// db is the GORM client backing the transition journal
	db *gorm.DB
}

// NewData creates a new Data instance with all data layer dependencies.
// Redis and MySQL are both optional; their absence selects the in-process
// counter store and the log-only journal respectively.
func NewData(_ *conf.Data, logger log.Logger, rdb *redis.Client, db *gorm.DB) (*Data, func(), error) {
	helper := log.NewHelper(logger)

	if rdb == nil {
		helper.Warn("Redis client is nil, rate windows will be process-local")
	}
	if db == nil {
		helper.Warn("database client is nil, transition journal will be log-only")
	}

	d := &Data{
		redisClient: rdb,
		db:          db,
	}

	cleanup := func() {
		helper.Info("closing the data resources")
		// Redis and MySQL cleanup are handled by their providers' cleanup
		// functions, which are called automatically by Wire
	}

	return d, cleanup, nil
}

// GetRedisClient returns the Redis client for advanced operations.
func (d *Data) GetRedisClient() *redis.Client {
	return d.redisClient
}

// GetDB returns the GORM client for journal queries.
func (d *Data) GetDB() *gorm.DB {
	return d.db
}
