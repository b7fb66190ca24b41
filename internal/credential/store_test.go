package credential

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T) (Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client), mr
}

func stores(t *testing.T) map[string]Store {
	rs, _ := newRedisStore(t)
	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  rs,
	}
}

func TestGetDelRemovesKey(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Set(ctx, "magic:abc", "user-1", time.Minute); err != nil {
				t.Fatalf("Set error: %v", err)
			}
			v, err := s.GetDel(ctx, "magic:abc")
			if err != nil || v != "user-1" {
				t.Fatalf("GetDel = %q, %v", v, err)
			}
			if _, err := s.GetDel(ctx, "magic:abc"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("second GetDel should be not found, got %v", err)
			}
			if _, err := s.Get(ctx, "magic:abc"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get after GetDel should be not found, got %v", err)
			}
		})
	}
}

func TestConcurrentGetDelSingleWinner(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Set(ctx, "refresh:u:j", "1", time.Minute); err != nil {
				t.Fatalf("Set error: %v", err)
			}
			var wins int32
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := s.GetDel(ctx, "refresh:u:j"); err == nil {
						atomic.AddInt32(&wins, 1)
					}
				}()
			}
			wg.Wait()
			if wins != 1 {
				t.Fatalf("expected exactly one winner, got %d", wins)
			}
		})
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	s.now = func() time.Time { return now }
	ctx := context.Background()

	_ = s.Set(ctx, "k", "v", time.Second)
	now = now.Add(2 * time.Second)
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired key to be gone, got %v", err)
	}
}

func TestRedisStoreExpiry(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()

	_ = s.Set(ctx, "k", "v", time.Second)
	mr.FastForward(2 * time.Second)
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired key to be gone, got %v", err)
	}
}

func TestDelIsIdempotent(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Del(ctx, "missing"); err != nil {
				t.Fatalf("Del on missing key: %v", err)
			}
		})
	}
}

func TestKeys(t *testing.T) {
	id := uuid.MustParse("6f1c1c2e-9b7a-4d8e-8f00-0a1b2c3d4e5f")
	if got := RefreshKey(id, "j1"); got != "refresh:6f1c1c2e-9b7a-4d8e-8f00-0a1b2c3d4e5f:j1" {
		t.Fatalf("RefreshKey = %q", got)
	}
	if got := MagicKey("abc"); got != "magic:abc" {
		t.Fatalf("MagicKey = %q", got)
	}
}
