package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestStore_GetOrLoad_UsesSingleFlight(t *testing.T) {
	t.Parallel()

	store := NewStore[string](time.Minute)
	var calls atomic.Int32

	loader := func(context.Context) (string, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return "team-1", nil
	}

	const workers = 32
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)
	errCh := make(chan error, workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			v, err := store.GetOrLoad(context.Background(), "registry:team:source:gotsport:42", loader)
			if err != nil {
				errCh <- err
				return
			}
			if v != "team-1" {
				errCh <- errUnexpectedValue
			}
		}()
	}

	close(start)
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected loader to run once, got %d", got)
	}
}

func TestStore_Expiry(t *testing.T) {
	t.Parallel()

	store := NewStore[int](time.Second)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	store.Set(context.Background(), "k", 1)
	if v, ok := store.Get(context.Background(), "k"); !ok || v != 1 {
		t.Fatalf("expected cached value before expiry")
	}

	now = now.Add(2 * time.Second)
	if _, ok := store.Get(context.Background(), "k"); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestStore_Purge(t *testing.T) {
	t.Parallel()

	store := NewStore[string](0)
	ctx := context.Background()
	store.Set(ctx, "registry:team:alias:river fc", "t-a")
	store.Set(ctx, "registry:event:alias:spring cup", "e-1")

	store.Purge(ctx)
	if store.Len() != 0 {
		t.Fatalf("expected purge to empty the store, got %d entries", store.Len())
	}
}

func TestStore_PurgeDropsInFlightLoad(t *testing.T) {
	t.Parallel()

	store := NewStore[string](time.Minute)
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan string)

	go func() {
		v, _ := store.GetOrLoad(ctx, "team:id:t-b", func(context.Context) (string, error) {
			close(started)
			<-release
			return "before-merge", nil
		})
		done <- v
	}()

	<-started
	store.Purge(ctx)
	close(release)
	if v := <-done; v != "before-merge" {
		t.Fatalf("caller should still get its own load, got %q", v)
	}
	if _, ok := store.Get(ctx, "team:id:t-b"); ok {
		t.Fatalf("a load that straddled a purge must not be cached")
	}

	v, err := store.GetOrLoad(ctx, "team:id:t-b", func(context.Context) (string, error) { return "after-merge", nil })
	if err != nil || v != "after-merge" {
		t.Fatalf("expected fresh load after purge, got %q err=%v", v, err)
	}
}

func TestStore_LoaderErrorNotCached(t *testing.T) {
	t.Parallel()

	store := NewStore[string](time.Minute)
	_, err := store.GetOrLoad(context.Background(), "k", func(context.Context) (string, error) {
		return "", errUnexpectedValue
	})
	if !errors.Is(err, errUnexpectedValue) {
		t.Fatalf("expected loader error, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("failed loads must not be cached")
	}
}

var errUnexpectedValue = errors.New("unexpected value")
