package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a test Redis client. Unit tests skip when no
// local Redis is reachable; tests/integration covers the same paths
// against a containerized instance.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNewManager_NilRedisPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewManager(nil) did not panic")
		}
	}()
	NewManager(nil, 0)
}

func TestManager_SetGet(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client, time.Minute)
	ctx := context.Background()

	key := Key{Market: "de-de", Page: 2, CacheVersion: "123"}
	body := []byte(`{"stories":[{"uuid":"a"}]}`)

	if err := manager.Set(ctx, key, body, 42); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	entry, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(entry.Data) != string(body) {
		t.Errorf("entry.Data = %s, want %s", entry.Data, body)
	}
	if entry.Total != 42 {
		t.Errorf("entry.Total = %d, want 42", entry.Total)
	}
	if entry.Age() > time.Minute {
		t.Errorf("entry.Age() = %v, want recent", entry.Age())
	}
}

func TestManager_GetMiss(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client, time.Minute)

	_, err := manager.Get(context.Background(), Key{Market: "xx", Page: 1, CacheVersion: "0"})
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() error = %v, want ErrCacheMiss", err)
	}
}

func TestManager_CacheVersionIsolation(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client, time.Minute)
	ctx := context.Background()

	old := Key{Market: "de-de", Page: 1, CacheVersion: "1"}
	if err := manager.Set(ctx, old, []byte("old snapshot"), 1); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// A new cache version must miss, never serve the old snapshot.
	fresh := Key{Market: "de-de", Page: 1, CacheVersion: "2"}
	_, err := manager.Get(ctx, fresh)
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get(new cv) error = %v, want ErrCacheMiss", err)
	}
}

func TestManager_Delete(t *testing.T) {
	client := setupTestRedis(t)
	manager := NewManager(client, time.Minute)
	ctx := context.Background()

	key := Key{Market: "de-de", Page: 1, CacheVersion: "1"}
	if err := manager.Set(ctx, key, []byte("data"), 1); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := manager.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err := manager.Get(ctx, key)
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() after Delete error = %v, want ErrCacheMiss", err)
	}
}
