package repository

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"TradeInfo/internal/domain/repository"
	"TradeInfo/pkg/cache"
)

func TestKVStores(t *testing.T) {
	backends := map[string]func(t *testing.T) repository.KVStore{
		"memory": func(t *testing.T) repository.KVStore {
			return NewCacheKVStore(cache.NewMemoryCache())
		},
		"file": func(t *testing.T) repository.KVStore {
			fc, err := cache.NewFileCache(cache.WithFileDir(t.TempDir()))
			if err != nil {
				t.Fatalf("file cache: %v", err)
			}
			return NewCacheKVStore(fc)
		},
		"sqlite": func(t *testing.T) repository.KVStore {
			kv, err := NewSQLiteKVStore(filepath.Join(t.TempDir(), "state.db"))
			if err != nil {
				t.Fatalf("sqlite: %v", err)
			}
			return kv
		},
	}

	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			kv := open(t)
			defer kv.Close()
			ctx := context.Background()

			if _, ok, err := kv.Get(ctx, "trade-info-v3-storage"); err != nil || ok {
				t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
			}

			for _, v := range [][]byte{[]byte(`{"version":3}`), []byte(`{"version":4}`)} {
				if err := kv.Set(ctx, "trade-info-v3-storage", v); err != nil {
					t.Fatalf("set: %v", err)
				}
				got, ok, err := kv.Get(ctx, "trade-info-v3-storage")
				if err != nil || !ok {
					t.Fatalf("get: ok=%v err=%v", ok, err)
				}
				if !bytes.Equal(got, v) {
					t.Fatalf("expected %s, got %s", v, got)
				}
			}
		})
	}
}
