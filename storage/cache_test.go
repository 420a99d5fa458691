package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type stubBackend struct {
	loadFn   func(ctx context.Context) ([]byte, error)
	saveFn   func(ctx context.Context, raw []byte) error
	deleteFn func(ctx context.Context) error
}

func (s *stubBackend) Load(ctx context.Context) ([]byte, error) {
	if s.loadFn == nil {
		return nil, errors.New("unexpected Load call")
	}
	return s.loadFn(ctx)
}

func (s *stubBackend) Save(ctx context.Context, raw []byte) error {
	if s.saveFn == nil {
		return errors.New("unexpected Save call")
	}
	return s.saveFn(ctx, raw)
}

func (s *stubBackend) Delete(ctx context.Context) error {
	if s.deleteFn == nil {
		return errors.New("unexpected Delete call")
	}
	return s.deleteFn(ctx)
}

func (s *stubBackend) Close() error { return nil }

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCacheLoadMissThenHit(t *testing.T) {
	mr, client := setupRedis(t)
	ctx := context.Background()
	doc := []byte(`{"version":"2.0"}`)

	var calls int
	cache := NewCache(&stubBackend{
		loadFn: func(context.Context) ([]byte, error) {
			calls++
			return doc, nil
		},
	}, client, "board-state", time.Minute)

	got, err := cache.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(got) != string(doc) {
		t.Fatalf("unexpected document: %s", got)
	}
	if ttl := mr.TTL("cache:board-state"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected TTL: %v", ttl)
	}

	cached, err := cache.Load(ctx)
	if err != nil {
		t.Fatalf("load cached: %v", err)
	}
	if string(cached) != string(doc) {
		t.Fatalf("unexpected cached document: %s", cached)
	}
	if calls != 1 {
		t.Fatalf("expected cached load to avoid backend, calls=%d", calls)
	}
}

func TestCacheDoesNotCacheMissingDocument(t *testing.T) {
	mr, client := setupRedis(t)

	var calls int
	cache := NewCache(&stubBackend{
		loadFn: func(context.Context) ([]byte, error) {
			calls++
			return nil, nil
		},
	}, client, "board-state", time.Minute)

	for i := 0; i < 2; i++ {
		got, err := cache.Load(context.Background())
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if got != nil {
			t.Fatalf("expected nil document, got %s", got)
		}
	}
	if calls != 2 {
		t.Fatalf("expected every load to reach backend, calls=%d", calls)
	}
	if mr.Exists("cache:board-state") {
		t.Fatal("absent document must not be cached")
	}
}

func TestCacheSaveEvicts(t *testing.T) {
	mr, client := setupRedis(t)
	if err := mr.Set("cache:board-state", `{"stale":true}`); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	var saved []byte
	cache := NewCache(&stubBackend{
		saveFn: func(_ context.Context, raw []byte) error {
			saved = raw
			return nil
		},
	}, client, "board-state", time.Minute)

	if err := cache.Save(context.Background(), []byte(`{"fresh":true}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if string(saved) != `{"fresh":true}` {
		t.Fatalf("backend did not receive document: %s", saved)
	}
	if mr.Exists("cache:board-state") {
		t.Fatal("expected cached document to be evicted")
	}
}

func TestCacheSaveErrorPreservesCache(t *testing.T) {
	mr, client := setupRedis(t)
	if err := mr.Set("cache:board-state", `{"cached":true}`); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	boom := errors.New("backend down")
	cache := NewCache(&stubBackend{
		saveFn: func(context.Context, []byte) error { return boom },
	}, client, "board-state", time.Minute)

	if err := cache.Save(context.Background(), []byte(`{}`)); !errors.Is(err, boom) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if !mr.Exists("cache:board-state") {
		t.Fatal("cache must survive a failed save")
	}
}

func TestCacheZeroTTLSkipsStore(t *testing.T) {
	mr, client := setupRedis(t)
	cache := NewCache(&stubBackend{
		loadFn: func(context.Context) ([]byte, error) { return []byte(`{}`), nil },
	}, client, "board-state", 0)

	if _, err := cache.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if mr.Exists("cache:board-state") {
		t.Fatal("zero ttl must not populate cache")
	}
}
