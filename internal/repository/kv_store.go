package repository

import (
	"context"
	"errors"

	"TradeInfo/internal/domain/repository"
	"TradeInfo/pkg/cache"
)

// CacheKVStore implements KVStore over any pkg/cache backend.
type CacheKVStore struct {
	svc cache.Service
}

// NewCacheKVStore wraps a cache backend as the document key-value store.
func NewCacheKVStore(svc cache.Service) repository.KVStore {
	return &CacheKVStore{svc: svc}
}

func (s *CacheKVStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.svc.Get(ctx, key)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

// Set stores value without expiry; preference data lives until overwritten.
func (s *CacheKVStore) Set(ctx context.Context, key string, value []byte) error {
	return s.svc.Set(ctx, key, value, 0)
}

func (s *CacheKVStore) Close() error {
	return s.svc.Close()
}
