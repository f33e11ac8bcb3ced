package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"keep_up_backend/internal/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockTimeout is returned when the lock could not be taken before ctx ended.
var ErrLockTimeout = errors.New("lock: timed out waiting for lock")

// unlockScript deletes the key only if we still own it.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker serializes across instances with SET NX PX. The TTL bounds how
// long a crashed holder can block others.
type RedisLocker struct {
	rdb       *redis.Client
	prefix    string
	ttl       time.Duration
	retryWait time.Duration
	logger    *slog.Logger
}

// NewRedisClient connects and pings Redis.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func NewRedisLocker(rdb *redis.Client, cfg config.RedisConfig, logger *slog.Logger) *RedisLocker {
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{
		rdb:       rdb,
		prefix:    "keepup:lock:",
		ttl:       ttl,
		retryWait: 50 * time.Millisecond,
		logger:    logger,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	token := uuid.NewString()

	for {
		ok, err := l.rdb.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis setnx %s: %w", redisKey, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", ErrLockTimeout, key, ctx.Err())
		case <-time.After(l.retryWait):
		}
	}

	return func() {
		// 呼び出し元のctxがキャンセル済みでも解放できるように新しいctxを使う
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := unlockScript.Run(releaseCtx, l.rdb, []string{redisKey}, token).Err(); err != nil {
			l.logger.Warn("Failed to release redis lock", "key", redisKey, "error", err)
		}
	}, nil
}
