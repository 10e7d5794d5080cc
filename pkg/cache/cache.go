package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service defines the byte-oriented key-value operations every backend provides.
// An expiration <= 0 means the value never expires.
type Service interface {
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
	Close() error
}

// GetJSON reads key and unmarshals it into a T.
func GetJSON[T any](ctx context.Context, c Service, key string) (T, error) {
	var obj T
	b, err := c.Get(ctx, key)
	if err != nil {
		return obj, err
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return obj, err
	}
	return obj, nil
}

// SetJSON marshals value and stores it under key.
func SetJSON(ctx context.Context, c Service, key string, value any, expiration time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, b, expiration)
}
