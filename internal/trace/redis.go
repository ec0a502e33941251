package trace

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alan-mat/drugrag/internal/config"
	"github.com/redis/go-redis/v9"
)

const KeyPrefix = "drugrag:trace:"

// RedisStore keeps every trace as JSON under its own key until the TTL expires.
type RedisStore struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewRedisStore(conf config.RedisConfig) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Username: conf.Username,
		Password: conf.Password,
		DB:       conf.DB,
	})
	return NewRedisStoreWithClient(rdb, time.Duration(conf.TTLSeconds)*time.Second)
}

func NewRedisStoreWithClient(rdb redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{
		rdb: rdb,
		ttl: ttl,
	}
}

func Key(id string) string {
	return KeyPrefix + id
}

func (s *RedisStore) Save(ctx context.Context, t *Trace) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}

	if err := s.rdb.Set(ctx, Key(t.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save trace: %w", err)
	}

	slog.Debug("saved trace", "key", Key(t.ID), "status", t.Status.String())
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// LogStore writes traces to the default logger.
type LogStore struct {
	Logger *slog.Logger
}

func (s LogStore) Save(ctx context.Context, t *Trace) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []any{
		"id", t.ID,
		"pipeline", t.Pipeline,
		"status", t.Status.String(),
		"duration", t.Duration(),
	}
	for k, v := range t.Values {
		attrs = append(attrs, k, v)
	}
	if t.FailReason != nil {
		attrs = append(attrs, "reason", *t.FailReason)
	}

	logger.InfoContext(ctx, "run finished", attrs...)
	return nil
}

func (s LogStore) Close() error { return nil }

// NewStore returns a RedisStore if an address is configured.
func NewStore(conf config.TraceConfig) Store {
	if conf.Redis.Addr == "" {
		return LogStore{}
	}
	return NewRedisStore(conf.Redis)
}
