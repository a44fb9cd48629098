package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// call is one shared fetch. done is closed once val and err are final.
type call[V any] struct {
	done chan struct{}
	val  V
	err  error
}

func (c *call[V]) wait(ctx context.Context) (V, error) {
	select {
	case <-c.done:
		return c.val, c.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Group memoizes fetches by key. The first caller for a key runs the fetch;
// every concurrent or later caller with the same key shares its outcome,
// errors included, until the entry is evicted or expires.
type Group[K comparable, V any] struct {
	name string
	mu   sync.Mutex
	lru  *expirable.LRU[K, *call[V]]
}

// NewGroup creates a Group holding at most size entries (0 = unbounded).
// Entries older than maxAge are treated as absent (0 = no expiry).
func NewGroup[K comparable, V any](name string, size int, maxAge time.Duration) *Group[K, V] {
	onEvict := func(K, *call[V]) {
		DedupRequests.WithLabelValues(name, "evicted").Inc()
	}
	return &Group[K, V]{
		name: name,
		lru:  expirable.NewLRU[K, *call[V]](size, onEvict, maxAge),
	}
}

// Do returns the shared outcome of fn for key, running fn only if no entry
// exists. The entry is registered before fn starts so racing callers can
// never both miss. A waiter whose own context is still live takes over when
// the running fetch was cancelled by its caller.
func (g *Group[K, V]) Do(ctx context.Context, key K, fn func(context.Context) (V, error)) (V, error) {
	for {
		g.mu.Lock()
		c, ok := g.lru.Get(key)
		if !ok {
			c = &call[V]{done: make(chan struct{})}
			g.lru.Add(key, c)
		}
		g.mu.Unlock()

		if !ok {
			DedupRequests.WithLabelValues(g.name, "miss").Inc()
			return g.run(ctx, key, c, fn)
		}

		DedupRequests.WithLabelValues(g.name, "hit").Inc()
		val, err := c.wait(ctx)
		if cancelled(err) && ctx.Err() == nil {
			continue
		}
		return val, err
	}
}

func (g *Group[K, V]) run(ctx context.Context, key K, c *call[V], fn func(context.Context) (V, error)) (V, error) {
	defer close(c.done)
	c.val, c.err = fn(ctx)

	// A cancelled caller says nothing about the upstream record.
	if cancelled(c.err) {
		g.forget(key, c)
	}
	return c.val, c.err
}

func cancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Forget drops the entry for key so the next Do fetches again.
func (g *Group[K, V]) Forget(key K) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lru.Remove(key)
}

// Len returns the number of live entries.
func (g *Group[K, V]) Len() int {
	return g.lru.Len()
}

func (g *Group[K, V]) forget(key K, c *call[V]) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cur, ok := g.lru.Peek(key); ok && cur == c {
		g.lru.Remove(key)
	}
}
