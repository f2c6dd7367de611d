package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cartsmash/backend/internal/domain"
)

func TestMemoryCache_SetAndGet(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	t.Run("store and retrieve string", func(t *testing.T) {
		if err := cache.Set(ctx, "checkout:instacart:abc", "https://example.com/checkout", time.Minute); err != nil {
			t.Fatalf("Set() error = %v", err)
		}

		value, err := cache.Get(ctx, "checkout:instacart:abc")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if value != "https://example.com/checkout" {
			t.Errorf("Get() = %v, want the stored URL", value)
		}
	})

	t.Run("structs come back as generic JSON shapes", func(t *testing.T) {
		type match struct {
			Name  string `json:"name"`
			Price string `json:"price"`
		}
		if err := cache.Set(ctx, "search:instacart:milk", []match{{Name: "Whole Milk", Price: "3.49"}}, time.Minute); err != nil {
			t.Fatalf("Set() error = %v", err)
		}

		value, err := cache.Get(ctx, "search:instacart:milk")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		list, ok := value.([]interface{})
		if !ok || len(list) != 1 {
			t.Fatalf("Get() = %T %v, want one-element slice", value, value)
		}
		first, ok := list[0].(map[string]interface{})
		if !ok || first["name"] != "Whole Milk" {
			t.Errorf("list[0] = %v, want decoded product map", list[0])
		}
	})

	t.Run("missing key is a cache miss", func(t *testing.T) {
		_, err := cache.Get(ctx, "no-such-key")
		if !errors.Is(err, domain.ErrCacheMiss) {
			t.Errorf("Get() error = %v, want ErrCacheMiss", err)
		}
	})

	t.Run("expired entry is a cache miss", func(t *testing.T) {
		if err := cache.Set(ctx, "short-lived", "value", time.Millisecond); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		time.Sleep(5 * time.Millisecond)

		_, err := cache.Get(ctx, "short-lived")
		if !errors.Is(err, domain.ErrCacheMiss) {
			t.Errorf("Get() error = %v, want ErrCacheMiss", err)
		}
	})

	t.Run("unmarshalable value is rejected", func(t *testing.T) {
		err := cache.Set(ctx, "bad", make(chan int), time.Minute)
		if err == nil {
			t.Error("Set() error = nil, want JSON marshal failure")
		}
	})
}

func TestMemoryCache_Delete(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	if err := cache.Set(ctx, "key", "value", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := cache.Delete(ctx, "key"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err := cache.Get(ctx, "key")
	if !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("Get() after delete error = %v, want ErrCacheMiss", err)
	}

	if err := cache.Delete(ctx, "never-existed"); err != nil {
		t.Errorf("Delete() of missing key error = %v, want nil", err)
	}
}

func TestMemoryCache_Exists(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	exists, err := cache.Exists(ctx, "key")
	if err != nil || exists {
		t.Errorf("Exists() = %v, %v; want false, nil", exists, err)
	}

	if err := cache.Set(ctx, "key", "value", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	exists, err = cache.Exists(ctx, "key")
	if err != nil || !exists {
		t.Errorf("Exists() = %v, %v; want true, nil", exists, err)
	}

	if err := cache.Set(ctx, "stale", "value", time.Millisecond); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	exists, err = cache.Exists(ctx, "stale")
	if err != nil || exists {
		t.Errorf("Exists() on expired = %v, %v; want false, nil", exists, err)
	}
}

func TestMemoryCache_EvictExpired(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	if err := cache.Set(ctx, "keep", "value", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := cache.Set(ctx, "drop", "value", time.Millisecond); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	cache.EvictExpired()

	if cache.Size() != 1 {
		t.Errorf("Size() = %d after eviction, want 1", cache.Size())
	}
	if _, err := cache.Get(ctx, "keep"); err != nil {
		t.Errorf("Get(keep) error = %v, want nil", err)
	}
}

func TestMemoryCache_Clear(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		if err := cache.Set(ctx, key, "value", time.Minute); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}

	cache.Clear()

	if cache.Size() != 0 {
		t.Errorf("Size() = %d after clear, want 0", cache.Size())
	}
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func(i int) {
			defer func() { done <- struct{}{} }()
			key := "key"
			for j := 0; j < 100; j++ {
				_ = cache.Set(ctx, key, i, time.Minute)
				_, _ = cache.Get(ctx, key)
				_, _ = cache.Exists(ctx, key)
			}
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}
