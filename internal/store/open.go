package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ayush/skillpath/backend/internal/auth"
	"github.com/ayush/skillpath/backend/internal/config"
)

// Open builds the storage backend named by cfg.StorageDriver around the
// given session store.
func Open(ctx context.Context, cfg *config.Config, sessions auth.SessionStore) (Storage, error) {
	switch cfg.StorageDriver {
	case config.DriverMemory:
		return NewMemStorage(sessions), nil
	case config.DriverSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath, sessions)
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.PostgresDSN, sessions)
	case config.DriverMongo:
		return OpenMongo(ctx, cfg.MongoURI, cfg.MongoDB, sessions)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// OpenSessions builds the session store named by cfg.SessionBackend. The
// returned close func releases its resources.
func OpenSessions(ctx context.Context, cfg *config.Config) (auth.SessionStore, func() error, error) {
	switch cfg.SessionBackend {
	case config.SessionsMemory:
		s := auth.NewMemorySessionStore(cfg.SessionTTL, auth.DefaultCheckPeriod)
		return s, s.Close, nil
	case config.SessionsRedis:
		rdb, err := NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, nil, fmt.Errorf("redis connect: %w", err)
		}
		return auth.NewRedisSessionStore(rdb, cfg.SessionTTL), rdb.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}
}

// NewRedisClient creates and pings a Redis client with optional password auth.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DialTimeout: 5 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}
