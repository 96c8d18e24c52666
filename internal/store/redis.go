package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the config record as JSON text under one key and the
// endpoint name under a second key.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

func NewRedisStore(client *redis.Client, prefix string, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}

	return &RedisStore{
		client: client,
		prefix: prefix,
		logger: logger.With("component", "redis_store"),
	}
}

// OpenRedis connects to addr and checks the connection with a ping.
func OpenRedis(ctx context.Context, addr, prefix string, logger *slog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "",
		DB:       0,
	})

	rs := NewRedisStore(client, prefix, logger)
	if err := client.Ping(ctx).Err(); err != nil {
		rs.logger.Error("failed to connect to redis", "error", err)
		_ = client.Close()
		return nil, fmt.Errorf("reaching redis at %s: %w", addr, err)
	}

	rs.logger.Debug("redis connection established", "addr", addr)
	return rs, nil
}

func (r *RedisStore) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("failed to close redis connection", "error", err)
		return err
	}

	return nil
}

func (r *RedisStore) Load(ctx context.Context) (*Saved, error) {
	raw, err := r.client.Get(ctx, r.key(configKey)).Result()
	if errors.Is(err, redis.Nil) {
		raw = ""
	} else if err != nil {
		return nil, fmt.Errorf("failed to read saved config: %w", err)
	}

	name, err := r.client.Get(ctx, r.key(endpointKey)).Result()
	if errors.Is(err, redis.Nil) {
		name = ""
	} else if err != nil {
		return nil, fmt.Errorf("failed to read saved endpoint: %w", err)
	}

	saved, err := decodeRecord(raw, name)
	if err != nil {
		r.logger.Warn("ignoring unreadable saved config", "error", err)
		return Defaults(), nil
	}

	return saved, nil
}

func (r *RedisStore) Save(ctx context.Context, s *Saved) error {
	raw, err := encodeRecord(s)
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(configKey), raw, 0)
		pipe.Set(ctx, r.key(endpointKey), s.Endpoint.Name(), 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write saved config: %w", err)
	}

	return nil
}

func (r *RedisStore) key(name string) string {
	if r.prefix == "" {
		return name
	}

	return r.prefix + ":" + name
}

func encodeRecord(s *Saved) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal saved config: %w", err)
	}

	return string(data), nil
}

func decodeRecord(raw, endpointName string) (*Saved, error) {
	var saved Saved
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &saved); err != nil {
			return nil, fmt.Errorf("failed to parse saved config: %w", err)
		}
	}

	saved.Endpoint = parseEndpoint(endpointName)
	return Merge(&saved), nil
}
