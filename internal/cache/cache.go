package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// BalanceCache holds wallet balances read on the hot path. The database row
// stays authoritative; entries are dropped after every committed mutation.
//
// Every user has a generation counter that Invalidate bumps. Get reports the
// generation seen on a miss and Set only writes when it is still current, so a
// balance read before a commit can never be cached after that commit's
// invalidation.
type BalanceCache interface {
	Get(ctx context.Context, userID string) (balance, generation int64, ok bool, err error)
	Set(ctx context.Context, userID string, generation, balance int64) error
	Invalidate(ctx context.Context, userID string) error
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

type RedisBalanceCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisBalanceCache(client *redis.Client, ttl time.Duration) *RedisBalanceCache {
	return &RedisBalanceCache{client: client, ttl: ttl}
}

func (c *RedisBalanceCache) Get(ctx context.Context, userID string) (int64, int64, bool, error) {
	values, err := c.client.MGet(ctx, balanceKey(userID), generationKey(userID)).Result()
	if err != nil {
		return 0, 0, false, err
	}
	generation, err := parseCached(values[1])
	if err != nil {
		return 0, 0, false, fmt.Errorf("cached generation for %s: %w", userID, err)
	}
	if values[0] == nil {
		return 0, generation, false, nil
	}
	balance, err := parseCached(values[0])
	if err != nil {
		return 0, generation, false, fmt.Errorf("cached balance for %s: %w", userID, err)
	}
	return balance, generation, true, nil
}

// Set stores balance unless the generation moved since the caller's Get.
// A lost race is not an error; the next read repopulates.
func (c *RedisBalanceCache) Set(ctx context.Context, userID string, generation, balance int64) error {
	genKey := generationKey(userID)
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, balanceKey(userID), strconv.FormatInt(balance, 10), c.ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

func (c *RedisBalanceCache) Invalidate(ctx context.Context, userID string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(userID))
		pipe.Del(ctx, balanceKey(userID))
		return nil
	})
	return err
}

func (c *RedisBalanceCache) HealthCheck(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	return nil
}

// Noop is used when no REDIS_ADDR is configured.
type Noop struct{}

func (Noop) Get(context.Context, string) (int64, int64, bool, error) { return 0, 0, false, nil }
func (Noop) Set(context.Context, string, int64, int64) error         { return nil }
func (Noop) Invalidate(context.Context, string) error               { return nil }

func balanceKey(userID string) string {
	return "wallet:balance:" + userID
}

func generationKey(userID string) string {
	return "wallet:balance-gen:" + userID
}

func parseCached(value any) (int64, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected cached value %T", value)
	}
}
