package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	defaultRedisTimeout = time.Second
	defaultRedisPrefix  = "discogs2spotify"
	scanBatchSize       = 100
)

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key written by the store.
	Prefix string
	// Timeout bounds each Redis round trip. Default is one second.
	Timeout time.Duration
	Logger  *log.Logger
}

// RedisStore is a Store backed by Redis. Expiry is delegated to Redis key
// TTLs, so entries survive process restarts. Redis errors are logged and
// treated as misses.
type RedisStore struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
	logger  *log.Entry
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultRedisTimeout
	}
	if opts.Prefix == "" {
		opts.Prefix = defaultRedisPrefix
	}
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.Timeout,
		ReadTimeout:  opts.Timeout,
		WriteTimeout: opts.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*opts.Timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}

	return &RedisStore{
		client:  client,
		prefix:  opts.Prefix + ":",
		timeout: opts.Timeout,
		logger:  opts.Logger.WithField("component", "redis_cache"),
	}, nil
}

// Get implements Store.
func (r *RedisStore) Get(key string) ([]byte, bool) {
	ctx, cancel := r.context()
	defer cancel()

	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.WithError(err).WithField("key", key).Warn("Redis get failed")
		}
		return nil, false
	}
	return data, true
}

// Set implements Store. A non-positive ttl removes the key, since Redis
// would otherwise keep it forever.
func (r *RedisStore) Set(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		r.Delete(key)
		return
	}

	ctx, cancel := r.context()
	defer cancel()
	if err := r.client.Set(ctx, r.prefix+key, value, ttl).Err(); err != nil {
		r.logger.WithError(err).WithField("key", key).Warn("Redis set failed")
	}
}

// Has implements Store.
func (r *RedisStore) Has(key string) bool {
	ctx, cancel := r.context()
	defer cancel()

	n, err := r.client.Exists(ctx, r.prefix+key).Result()
	if err != nil {
		r.logger.WithError(err).WithField("key", key).Warn("Redis exists failed")
		return false
	}
	return n > 0
}

// Delete implements Store.
func (r *RedisStore) Delete(key string) bool {
	ctx, cancel := r.context()
	defer cancel()

	n, err := r.client.Del(ctx, r.prefix+key).Result()
	if err != nil {
		r.logger.WithError(err).WithField("key", key).Warn("Redis delete failed")
		return false
	}
	return n > 0
}

// DeletePrefix implements Store.
func (r *RedisStore) DeletePrefix(prefix string) int {
	keys := r.scan(prefix)
	if len(keys) == 0 {
		return 0
	}

	removed := 0
	for start := 0; start < len(keys); start += scanBatchSize {
		end := min(start+scanBatchSize, len(keys))
		ctx, cancel := r.context()
		n, err := r.client.Del(ctx, keys[start:end]...).Result()
		cancel()
		if err != nil {
			r.logger.WithError(err).WithField("prefix", prefix).Warn("Redis bulk delete failed")
			continue
		}
		removed += int(n)
	}
	return removed
}

// Clear implements Store. Only keys under the store prefix are removed.
func (r *RedisStore) Clear() {
	r.DeletePrefix("")
}

// Stats implements Store.
func (r *RedisStore) Stats() Stats {
	raw := r.scan("")
	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		keys = append(keys, strings.TrimPrefix(k, r.prefix))
	}
	sort.Strings(keys)
	return Stats{Size: len(keys), Keys: keys}
}

// Close closes the Redis client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

// scan returns the full Redis keys under the store prefix plus prefix.
func (r *RedisStore) scan(prefix string) []string {
	ctx, cancel := context.WithTimeout(context.Background(), 10*r.timeout)
	defer cancel()

	var keys []string
	iter := r.client.Scan(ctx, 0, escapeGlob(r.prefix+prefix)+"*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		r.logger.WithError(err).WithField("prefix", prefix).Warn("Redis scan failed")
	}
	return keys
}

func (r *RedisStore) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.timeout)
}

// escapeGlob quotes the characters SCAN MATCH treats as patterns.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch c {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}
