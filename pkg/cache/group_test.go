package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type locationKey struct {
	Library  string
	Location string
}

func TestGroup_ConcurrentCallersShareOneFetch(t *testing.T) {
	g := NewGroup[string, string]("test-concurrent", 10, 0)
	ctx := context.Background()

	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "user-1", nil
	}

	const callers = 8
	results := make([]string, callers)
	var wg sync.WaitGroup
	var started sync.WaitGroup
	started.Add(callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Done()
			v, err := g.Do(ctx, "/users/1", fetch)
			if err != nil {
				t.Errorf("Do() error = %v", err)
			}
			results[i] = v
		}(i)
	}
	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("fetch called %d times, want 1", n)
	}
	for i, v := range results {
		if v != "user-1" {
			t.Errorf("caller %d got %q", i, v)
		}
	}
}

func TestGroup_ErrorIsShared(t *testing.T) {
	g := NewGroup[string, int]("test-error", 10, 0)
	ctx := context.Background()
	boom := errors.New("boom")

	var calls int
	fetch := func(context.Context) (int, error) {
		calls++
		return 0, boom
	}

	for i := 0; i < 3; i++ {
		if _, err := g.Do(ctx, "k", fetch); !errors.Is(err, boom) {
			t.Errorf("call %d error = %v, want boom", i, err)
		}
	}
	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}
}

func TestGroup_StructKeys(t *testing.T) {
	g := NewGroup[locationKey, string]("test-struct", 10, 0)
	ctx := context.Background()

	var calls int
	fetch := func(name string) func(context.Context) (string, error) {
		return func(context.Context) (string, error) {
			calls++
			return name, nil
		}
	}

	// Keys that would collide if joined with a delimiter stay distinct.
	a, _ := g.Do(ctx, locationKey{"A:B", "C"}, fetch("first"))
	b, _ := g.Do(ctx, locationKey{"A", "B:C"}, fetch("second"))
	again, _ := g.Do(ctx, locationKey{"A:B", "C"}, fetch("third"))

	if a != "first" || b != "second" || again != "first" {
		t.Errorf("got %q %q %q", a, b, again)
	}
	if calls != 2 {
		t.Errorf("fetch called %d times, want 2", calls)
	}
}

func TestGroup_EvictionRefetches(t *testing.T) {
	g := NewGroup[string, string]("test-evict", 2, 0)
	ctx := context.Background()

	var calls int
	fetch := func(context.Context) (string, error) {
		calls++
		return "v", nil
	}

	g.Do(ctx, "a", fetch)
	g.Do(ctx, "b", fetch)
	g.Do(ctx, "c", fetch) // evicts "a"
	if g.Len() != 2 {
		t.Errorf("Len() = %d, want 2", g.Len())
	}

	g.Do(ctx, "a", fetch)
	if calls != 4 {
		t.Errorf("fetch called %d times, want 4", calls)
	}
}

func TestGroup_MaxAge(t *testing.T) {
	g := NewGroup[string, string]("test-maxage", 10, 50*time.Millisecond)
	ctx := context.Background()

	var calls int
	fetch := func(context.Context) (string, error) {
		calls++
		return "v", nil
	}

	g.Do(ctx, "k", fetch)
	g.Do(ctx, "k", fetch)
	if calls != 1 {
		t.Fatalf("fetch called %d times before expiry, want 1", calls)
	}

	time.Sleep(80 * time.Millisecond)
	g.Do(ctx, "k", fetch)
	if calls != 2 {
		t.Errorf("fetch called %d times after expiry, want 2", calls)
	}
}

func TestGroup_CancelledFetchNotCached(t *testing.T) {
	g := NewGroup[string, string]("test-cancel", 10, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Do(ctx, "k", func(ctx context.Context) (string, error) {
		return "", ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}

	v, err := g.Do(context.Background(), "k", func(context.Context) (string, error) {
		return "fresh", nil
	})
	if err != nil || v != "fresh" {
		t.Errorf("Do() = %q, %v; want fresh, nil", v, err)
	}
}

func TestGroup_WaiterHonoursOwnContext(t *testing.T) {
	g := NewGroup[string, string]("test-waiter", 10, 0)
	release := make(chan struct{})
	defer close(release)

	go g.Do(context.Background(), "k", func(context.Context) (string, error) {
		<-release
		return "v", nil
	})
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := g.Do(ctx, "k", nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("waiter error = %v, want deadline exceeded", err)
	}
}

func TestGroup_Forget(t *testing.T) {
	g := NewGroup[string, int]("test-forget", 10, 0)
	ctx := context.Background()

	n := 0
	fetch := func(context.Context) (int, error) {
		n++
		return n, nil
	}

	first, _ := g.Do(ctx, "k", fetch)
	g.Forget("k")
	second, _ := g.Do(ctx, "k", fetch)
	if first != 1 || second != 2 {
		t.Errorf("got %d then %d, want 1 then 2", first, second)
	}
}

func TestGroup_WaiterTakesOverCancelledFetch(t *testing.T) {
	g := NewGroup[string, string]("test-takeover", 10, 0)

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	started := make(chan struct{})
	leaderErr := make(chan error, 1)
	go func() {
		_, err := g.Do(leaderCtx, "k", func(ctx context.Context) (string, error) {
			close(started)
			<-ctx.Done()
			return "", ctx.Err()
		})
		leaderErr <- err
	}()
	<-started

	result := make(chan string, 1)
	go func() {
		v, err := g.Do(context.Background(), "k", func(context.Context) (string, error) {
			return "fresh", nil
		})
		if err != nil {
			v = "error: " + err.Error()
		}
		result <- v
	}()
	time.Sleep(20 * time.Millisecond)
	cancelLeader()

	if err := <-leaderErr; !errors.Is(err, context.Canceled) {
		t.Errorf("leader error = %v, want context.Canceled", err)
	}
	select {
	case v := <-result:
		if v != "fresh" {
			t.Errorf("waiter got %q, want fresh", v)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter did not take over the cancelled fetch")
	}
}
