package memstore

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     string
	expiresAt time.Time // zero: never
}

// Store keeps storage slots in process memory. Entries do not survive a restart.
type Store struct {
	sync.RWMutex
	table map[string]entry
	ttl   time.Duration
}

var nowFunc = time.Now // mockable

// New returns an empty Store; a ttl > 0 expires entries that long after they were last set.
func New(ttl time.Duration) *Store {
	return &Store{table: make(map[string]entry), ttl: ttl}
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.RLock()
	e, ok := s.table[key]
	s.RUnlock()

	if !ok {
		return "", false, nil
	}
	if !e.expiresAt.IsZero() && nowFunc().After(e.expiresAt) {
		s.Lock()
		delete(s.table, key)
		s.Unlock()
		return "", false, nil
	}
	return e.value, true, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.Lock()
	defer s.Unlock()

	e := entry{value: value}
	if s.ttl > 0 {
		e.expiresAt = nowFunc().Add(s.ttl)
	}
	s.table[key] = e
	return nil
}

func (s *Store) Remove(_ context.Context, keys ...string) error {
	s.Lock()
	defer s.Unlock()
	for _, key := range keys {
		delete(s.table, key)
	}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (s *Store) Len() int {
	s.RLock()
	defer s.RUnlock()
	return len(s.table)
}
