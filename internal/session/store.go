// Package session keeps booking conversations between turns, keyed by an
// opaque id.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/christopherklint97/bookr/internal/booking"
)

var (
	ErrNotFound    = errors.New("session not found")
	ErrInvalidKind = errors.New("unknown session store kind")
	ErrNoRedisAddr = errors.New("redis session store needs an address")
)

// Record is a stored conversation.
type Record struct {
	ID        string           `json:"id"`
	Session   *booking.Session `json:"session"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Store holds sessions. Get returns a private copy: changes reach the store
// only through Put.
type Store interface {
	Get(ctx context.Context, id string) (*Record, error)
	Put(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, id string) error
	Len(ctx context.Context) (int, error)
	Close() error
}

// NewID returns a fresh session id.
func NewID() string {
	return uuid.NewString()
}

// NewRecord wraps s under a new id.
func NewRecord(s *booking.Session) *Record {
	now := time.Now()
	return &Record{ID: NewID(), Session: s, CreatedAt: now, UpdatedAt: now}
}

type Kind string

const (
	KindMemory Kind = "memory"
	KindRedis  Kind = "redis"
)

// Config selects and tunes a store.
type Config struct {
	Kind        Kind
	MaxSessions int
	RedisAddr   string
	RedisDB     int
	Password    string
	TTL         time.Duration
}

// New builds the store named by cfg.Kind. Redis connectivity is checked
// with a ping.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Kind {
	case KindMemory, "":
		return NewMemoryStore(cfg.MaxSessions)
	case KindRedis:
		if cfg.RedisAddr == "" {
			return nil, ErrNoRedisAddr
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.Password,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
		}
		return NewRedisStore(client, cfg.TTL), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, cfg.Kind)
	}
}

func encode(rec *Record) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encoding session %s: %w", rec.ID, err)
	}
	return data, nil
}

func decode(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	if rec.Session == nil {
		return nil, fmt.Errorf("decoding session %s: missing state", rec.ID)
	}
	return &rec, nil
}
