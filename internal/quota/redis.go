package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// keyTTL outlives the day bucket so late writes near midnight still expire.
const keyTTL = 48 * time.Hour

// RedisStore keeps daily counters in Redis with INCR + EXPIRE.
type RedisStore struct {
	rdb    *goredis.Client
	limit  int
	prefix string
	now    func() time.Time
}

// NewRedisStore connects to addr and verifies the connection.
func NewRedisStore(ctx context.Context, addr string, db, limit int) (*RedisStore, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newRedisStore(rdb, limit), nil
}

func newRedisStore(rdb *goredis.Client, limit int) *RedisStore {
	return &RedisStore{rdb: rdb, limit: limit, prefix: "quota", now: time.Now}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + ":" + k + ":" + day(s.now())
}

func (s *RedisStore) Check(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Get(ctx, s.key(key)).Int()
	if errors.Is(err, goredis.Nil) {
		return s.limit > 0, nil
	}
	if err != nil {
		return false, fmt.Errorf("quota check: %w", err)
	}
	return n < s.limit, nil
}

func (s *RedisStore) Consume(ctx context.Context, key string) error {
	k := s.key(key)
	_, err := s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Incr(ctx, k)
		p.Expire(ctx, k, keyTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("quota consume: %w", err)
	}
	return nil
}

// Close releases the Redis connection pool.
func (s *RedisStore) Close() error { return s.rdb.Close() }
