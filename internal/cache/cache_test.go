package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/safepay-ai/safepay/internal/domain"
)

func TestLRUCache(t *testing.T) {
	cache := NewLRUCache(100)
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		err := cache.Set(ctx, "key1", []byte("value1"), time.Minute)
		if err != nil {
			t.Fatalf("Set failed: %v", err)
		}

		val, err := cache.Get(ctx, "key1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}

		if string(val) != "value1" {
			t.Errorf("expected 'value1', got '%s'", string(val))
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		val, err := cache.Get(ctx, "nonexistent")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if val != nil {
			t.Errorf("expected nil for cache miss, got: %v", val)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = cache.Set(ctx, "key2", []byte("value2"), time.Minute)

		err := cache.Delete(ctx, "key2")
		if err != nil {
			t.Fatalf("Delete failed: %v", err)
		}

		val, _ := cache.Get(ctx, "key2")
		if val != nil {
			t.Error("expected nil after delete")
		}
	})

	t.Run("TTLExpiration", func(t *testing.T) {
		_ = cache.Set(ctx, "expiring", []byte("temp"), 10*time.Millisecond)

		// Should be available immediately
		val, _ := cache.Get(ctx, "expiring")
		if val == nil {
			t.Fatal("expected value before expiry")
		}

		time.Sleep(20 * time.Millisecond)

		val, _ = cache.Get(ctx, "expiring")
		if val != nil {
			t.Error("expected nil after TTL expiry")
		}
	})

	t.Run("UpdateExisting", func(t *testing.T) {
		_ = cache.Set(ctx, "key3", []byte("first"), time.Minute)
		_ = cache.Set(ctx, "key3", []byte("second"), time.Minute)

		val, _ := cache.Get(ctx, "key3")
		if string(val) != "second" {
			t.Errorf("expected 'second', got '%s'", string(val))
		}
	})
}

func TestLRUCacheEviction(t *testing.T) {
	cache := NewLRUCache(3)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		key := fmt.Sprintf("key%d", i)
		_ = cache.Set(ctx, key, []byte("v"), time.Minute)
	}

	size, capacity := cache.Stats()
	if size != 3 {
		t.Errorf("expected size 3 after eviction, got %d", size)
	}
	if capacity != 3 {
		t.Errorf("expected capacity 3, got %d", capacity)
	}

	// Oldest entry must be gone
	val, _ := cache.Get(ctx, "key0")
	if val != nil {
		t.Error("expected oldest entry to be evicted")
	}

	val, _ = cache.Get(ctx, "key3")
	if val == nil {
		t.Error("expected newest entry to survive")
	}
}

func TestLRUCacheRecentlyUsedSurvives(t *testing.T) {
	cache := NewLRUCache(2)
	ctx := context.Background()

	_ = cache.Set(ctx, "a", []byte("1"), time.Minute)
	_ = cache.Set(ctx, "b", []byte("2"), time.Minute)

	// Touch "a" so "b" becomes the eviction candidate.
	_, _ = cache.Get(ctx, "a")

	_ = cache.Set(ctx, "c", []byte("3"), time.Minute)

	if val, _ := cache.Get(ctx, "a"); val == nil {
		t.Error("recently used entry was evicted")
	}
	if val, _ := cache.Get(ctx, "b"); val != nil {
		t.Error("least recently used entry survived eviction")
	}
}

func TestDirectoryEntryRoundTrip(t *testing.T) {
	cache := NewLRUCache(100)
	ctx := context.Background()

	entry := &domain.DirectoryEntry{
		UPIID:              "merchant@oldbank",
		DisplayName:        "Old Bank Merchant",
		VerificationStatus: domain.VerificationVerified,
		TrustScore:         71.3,
		AccountAgeMonths:   24,
		GeoFlag:            domain.GeoNormal,
	}

	if err := cache.SetDirectoryEntry(ctx, entry.UPIID, entry, time.Minute); err != nil {
		t.Fatalf("SetDirectoryEntry failed: %v", err)
	}

	got, err := cache.GetDirectoryEntry(ctx, entry.UPIID)
	if err != nil {
		t.Fatalf("GetDirectoryEntry failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected cached entry")
	}
	if got.TrustScore != entry.TrustScore || got.AccountAgeMonths != entry.AccountAgeMonths {
		t.Errorf("entry did not round-trip: %+v", got)
	}

	missing, err := cache.GetDirectoryEntry(ctx, "nobody@nowhere")
	if err != nil {
		t.Fatalf("GetDirectoryEntry failed: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for uncached entry, got %+v", missing)
	}
}

func TestNewCacheFactory(t *testing.T) {
	c, err := New(domain.CacheConfig{Type: "memory", LocalMaxSize: 10})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer c.Close()

	if _, ok := c.(*LRUCache); !ok {
		t.Errorf("expected *LRUCache, got %T", c)
	}

	if _, err := New(domain.CacheConfig{Type: "memcached"}); err == nil {
		t.Error("expected error for unsupported cache type")
	}
}
