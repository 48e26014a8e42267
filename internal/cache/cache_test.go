package cache

import (
	"context"
	"testing"
	"time"

	"github.com/dokan-next/internal/config"
)

func TestLocalStoreDeletePrefix(t *testing.T) {
	store := NewLocalStore(time.Minute, 0)
	store.Set("pricing:product:1:user:anon", 1)
	store.Set("pricing:product:1:user:7", 2)
	store.Set("pricing:product:12:user:anon", 3)
	store.Set("other:key", 4)

	if deleted := store.DeletePrefix("pricing:product:1:"); deleted != 2 {
		t.Fatalf("want 2 deleted got %d", deleted)
	}
	if _, ok := store.Get("pricing:product:12:user:anon"); !ok {
		t.Fatalf("product 12 entry should survive prefix delete of product 1")
	}
	if _, ok := store.Get("other:key"); !ok {
		t.Fatalf("unrelated entry should survive")
	}
}

func TestLocalStoreExpiry(t *testing.T) {
	store := NewLocalStore(time.Minute, 0)
	store.SetWithTTL("short", "v", 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	if _, ok := store.Get("short"); ok {
		t.Fatalf("entry should have expired")
	}
}

func TestDisabledRedisStoreIsNoop(t *testing.T) {
	store := NewRedisStore(&config.RedisConfig{Enabled: false})
	ctx := context.Background()
	if store.Enabled() {
		t.Fatalf("disabled store should report not enabled")
	}
	var dest map[string]string
	hit, err := store.GetJSON(ctx, "k", &dest)
	if err != nil || hit {
		t.Fatalf("disabled get want miss without error got hit=%v err=%v", hit, err)
	}
	if err := store.SetJSON(ctx, "k", map[string]string{"a": "b"}, time.Minute); err != nil {
		t.Fatalf("disabled set should not fail: %v", err)
	}
	if n, err := store.DelPattern(ctx, "pricing:*"); err != nil || n != 0 {
		t.Fatalf("disabled del pattern want 0 got %d err %v", n, err)
	}
}

func TestRedisStoreBuildKeyUsesPrefix(t *testing.T) {
	store := &RedisStore{prefix: "dk"}
	if got := store.buildKey(" pricing:events:active "); got != "dk:pricing:events:active" {
		t.Fatalf("want dk:pricing:events:active got %s", got)
	}
	if got := store.buildKey(""); got != "dk" {
		t.Fatalf("want dk got %s", got)
	}
}
