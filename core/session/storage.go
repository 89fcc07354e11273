package session

import "context"

// Storage is the durable key/value area a Store persists its slots into.
// Every Store sharing the same Storage (and prefix) sees the same session.
type Storage interface {
	// Get returns the value stored under key and whether it was found.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error
	// Remove deletes the keys; missing keys are not an error.
	Remove(ctx context.Context, keys ...string) error
}

type prefixedStorage struct {
	base   Storage
	prefix string
}

// Prefixed returns a Storage that namespaces every key of `base` under `prefix`.
func Prefixed(base Storage, prefix string) Storage {
	return &prefixedStorage{base: base, prefix: prefix}
}

func (s *prefixedStorage) Get(ctx context.Context, key string) (string, bool, error) {
	return s.base.Get(ctx, s.prefix+key)
}

func (s *prefixedStorage) Set(ctx context.Context, key, value string) error {
	return s.base.Set(ctx, s.prefix+key, value)
}

func (s *prefixedStorage) Remove(ctx context.Context, keys ...string) error {
	prefixed := make([]string, 0, len(keys))
	for _, key := range keys {
		prefixed = append(prefixed, s.prefix+key)
	}
	return s.base.Remove(ctx, prefixed...)
}
