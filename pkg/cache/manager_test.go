package cache

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis connects to a local Redis or skips the test.
// Container-backed coverage lives in tests/integration.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
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

func TestNewManager(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	manager := NewManager(client, 0)
	if manager.redis != client {
		t.Error("Manager redis client not set correctly")
	}
	if manager.TTL() != DefaultTTL {
		t.Errorf("TTL() = %v, want %v", manager.TTL(), DefaultTTL)
	}
}

func TestNewManager_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewManager should panic with nil redis client")
		}
	}()
	NewManager(nil, time.Minute)
}

func TestManager_SetAndGet(t *testing.T) {
	manager := NewManager(setupTestRedis(t), time.Minute)
	ctx := context.Background()

	key := Key{Account: "acme", Endpoint: "identity/list"}
	entry := &Entry{
		Data:       []byte(`[{"identity":"Default"}]`),
		StatusCode: 200,
		URL:        "https://api.sendgrid.com/api/newsletter/identity/list.json",
	}

	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	got, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if string(got.Data) != string(entry.Data) {
		t.Errorf("Data = %s, want %s", got.Data, entry.Data)
	}
	if got.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", got.StatusCode)
	}
	if got.TTL() <= 0 {
		t.Error("expected positive TTL")
	}
}

func TestManager_GetMiss(t *testing.T) {
	manager := NewManager(setupTestRedis(t), time.Minute)

	_, err := manager.Get(context.Background(), Key{Account: "acme", Endpoint: "nope"})
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() error = %v, want ErrCacheMiss", err)
	}
}

func TestManager_SetNil(t *testing.T) {
	manager := NewManager(setupTestRedis(t), time.Minute)

	if err := manager.Set(context.Background(), Key{}, nil); err == nil {
		t.Error("Set(nil) expected error")
	}
}

func TestManager_Invalidate(t *testing.T) {
	manager := NewManager(setupTestRedis(t), time.Minute)
	ctx := context.Background()

	for _, name := range []string{"a", "b"} {
		key := Key{Account: "acme", Endpoint: "identity/get", Params: url.Values{"identity": {name}}}
		if err := manager.Set(ctx, key, &Entry{Data: []byte(`{}`)}); err != nil {
			t.Fatalf("Set() error: %v", err)
		}
	}
	other := Key{Account: "acme", Endpoint: "category/list"}
	if err := manager.Set(ctx, other, &Entry{Data: []byte(`[]`)}); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	removed, err := manager.Invalidate(ctx, Key{Account: "acme", Endpoint: "identity/get"})
	if err != nil {
		t.Fatalf("Invalidate() error: %v", err)
	}
	if removed != 2 {
		t.Errorf("Invalidate() removed %d, want 2", removed)
	}

	if _, err := manager.Get(ctx, other); err != nil {
		t.Errorf("unrelated key should survive: %v", err)
	}
}
