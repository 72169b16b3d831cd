package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "bookr:session:"
	defaultTTL = 24 * time.Hour
)

// RedisStore keeps sessions as JSON strings that expire after ttl without
// activity.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) key(id string) string {
	return keyPrefix + id
}

// Get refreshes the TTL on every read.
func (r *RedisStore) Get(ctx context.Context, id string) (*Record, error) {
	val, err := r.client.GetEx(ctx, r.key(id), r.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading session %s: %w", id, err)
	}
	return decode(val)
}

func (r *RedisStore) Put(ctx context.Context, rec *Record) error {
	rec.UpdatedAt = time.Now()
	data, err := encode(rec)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(rec.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("writing session %s: %w", rec.ID, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := r.client.Del(ctx, r.key(id)).Result()
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Len counts session keys with SCAN, so it is approximate under churn.
func (r *RedisStore) Len(ctx context.Context) (int, error) {
	count := 0
	iter := r.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("counting sessions: %w", err)
	}
	return count, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
