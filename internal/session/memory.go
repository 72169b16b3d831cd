package session

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxSessions bounds the memory store when no size is configured.
const DefaultMaxSessions = 1000

// MemoryStore keeps encoded sessions in an LRU cache; the least recently
// used conversation is dropped once the cache is full.
type MemoryStore struct {
	cache *lru.Cache[string, []byte]
}

func NewMemoryStore(maxSessions int) (*MemoryStore, error) {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	cache, err := lru.New[string, []byte](maxSessions)
	if err != nil {
		return nil, err
	}
	return &MemoryStore{cache: cache}, nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	data, ok := m.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return decode(data)
}

func (m *MemoryStore) Put(_ context.Context, rec *Record) error {
	rec.UpdatedAt = time.Now()
	data, err := encode(rec)
	if err != nil {
		return err
	}
	m.cache.Add(rec.ID, data)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	if !m.cache.Remove(id) {
		return ErrNotFound
	}
	return nil
}

func (m *MemoryStore) Len(context.Context) (int, error) {
	return m.cache.Len(), nil
}

func (m *MemoryStore) Close() error {
	m.cache.Purge()
	return nil
}
