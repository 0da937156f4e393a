package store

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"shopassist/domain"
)

func TestInMemoryStore_SetGetDelete(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		_, err := s.Get(ctx, "no-such")
		if !domain.IsKeyNotFoundError(err) {
			t.Fatalf("expected KeyNotFoundError, got %v", err)
		}
	})

	t.Run("set then get", func(t *testing.T) {
		if err := s.Set(ctx, domain.KeyChatSessionID, "sid-1"); err != nil {
			t.Fatalf("set failed: %v", err)
		}
		v, err := s.Get(ctx, domain.KeyChatSessionID)
		if err != nil || v != "sid-1" {
			t.Fatalf("expected sid-1, got %q (%v)", v, err)
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		_ = s.Set(ctx, domain.KeyChatSessionID, "sid-2")
		v, _ := s.Get(ctx, domain.KeyChatSessionID)
		if v != "sid-2" {
			t.Fatalf("expected sid-2, got %q", v)
		}
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		if err := s.Delete(ctx, domain.KeyChatSessionID); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if err := s.Delete(ctx, domain.KeyChatSessionID); err != nil {
			t.Fatalf("second delete failed: %v", err)
		}
		if _, err := s.Get(ctx, domain.KeyChatSessionID); !domain.IsKeyNotFoundError(err) {
			t.Fatalf("expected KeyNotFoundError after delete, got %v", err)
		}
	})
}

func TestInMemoryStore_CanceledContext(t *testing.T) {
	s := NewInMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Set(ctx, "k", "v"); err == nil {
		t.Fatal("expected context error on Set")
	}
	if _, err := s.Get(ctx, "k"); err == nil {
		t.Fatal("expected context error on Get")
	}
	if err := s.Delete(ctx, "k"); err == nil {
		t.Fatal("expected context error on Delete")
	}
}

func TestInMemoryStore_ConcurrentAccess(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	var wg sync.WaitGroup

	n := 100
	wg.Add(n)
	for i := 0; i < n; i++ {
		key := "k-conc-" + strconv.Itoa(i)
		go func(key string) {
			defer wg.Done()
			_ = s.Set(ctx, key, key)
			_, _ = s.Get(ctx, key)
		}(key)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		key := "k-conc-" + strconv.Itoa(i)
		if v, err := s.Get(ctx, key); err != nil || v != key {
			t.Fatalf("expected %s, got %q (%v)", key, v, err)
		}
	}
}

func BenchmarkInMemoryStore_Get(b *testing.B) {
	s := NewInMemoryStore()
	for i := 0; i < 1000; i++ {
		_ = s.Set(context.Background(), "b-get-"+strconv.Itoa(i), "v")
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.Get(context.Background(), "b-get-"+strconv.Itoa(i%1000))
	}
}
