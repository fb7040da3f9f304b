package page

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Snapshot is the state of a Resource at the time it was read.
type Snapshot[T any] struct {
	Data    T
	HasData bool
	Err     error
	Loading bool
}

// Resource caches one backend listing keyed by its endpoint. Concurrent loads
// share a single fetch; previously fetched data is kept and returned alongside
// later errors or while a refetch is still running.
//
// Every Mutate and Revalidate starts a new generation. A fetch is only shared
// by callers of the same generation, and a result never replaces one from a
// newer generation.
type Resource[T any] struct {
	key          string
	fetch        func(ctx context.Context) (T, error)
	maxAge       time.Duration
	fetchTimeout time.Duration
	group        singleflight.Group

	mu        sync.Mutex
	data      T
	hasData   bool
	err       error
	stale     bool
	fetchedAt time.Time
	gen       uint64
	applied   uint64
}

// NewResource creates a resource. Data younger than maxAge is served without
// refetching unless Mutate was called. Each fetch runs detached from the
// caller with fetchTimeout, so a caller giving up early does not abort it.
func NewResource[T any](key string, maxAge, fetchTimeout time.Duration, fetch func(ctx context.Context) (T, error)) *Resource[T] {
	return &Resource[T]{
		key:          key,
		fetch:        fetch,
		maxAge:       maxAge,
		fetchTimeout: fetchTimeout,
	}
}

// Key is the endpoint the resource caches.
func (r *Resource[T]) Key() string {
	return r.key
}

// Load returns cached data when fresh, otherwise fetches and waits until the
// fetch finishes or ctx is done. In the latter case the snapshot reports
// Loading and carries whatever was cached before.
func (r *Resource[T]) Load(ctx context.Context) Snapshot[T] {
	r.mu.Lock()
	fresh := r.hasData && !r.stale && r.err == nil && time.Since(r.fetchedAt) < r.maxAge
	gen := r.gen
	r.mu.Unlock()
	if fresh {
		return r.snapshot(false)
	}
	return r.run(ctx, gen)
}

// Revalidate fetches regardless of freshness. It never joins a fetch that
// started before the call.
func (r *Resource[T]) Revalidate(ctx context.Context) Snapshot[T] {
	r.mu.Lock()
	r.gen++
	gen := r.gen
	r.mu.Unlock()
	return r.run(ctx, gen)
}

func (r *Resource[T]) run(ctx context.Context, gen uint64) Snapshot[T] {
	key := r.key + "#" + strconv.FormatUint(gen, 10)
	ch := r.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.fetchTimeout)
		defer cancel()

		data, err := r.fetch(fetchCtx)

		r.mu.Lock()
		defer r.mu.Unlock()
		if gen < r.applied {
			return nil, err
		}
		r.applied = gen
		if gen == r.gen {
			r.stale = false
		}
		if err != nil {
			r.err = err
			return nil, err
		}
		r.data = data
		r.hasData = true
		r.err = nil
		r.fetchedAt = time.Now()
		return nil, nil
	})

	select {
	case <-ch:
		return r.snapshot(false)
	case <-ctx.Done():
		return r.snapshot(true)
	}
}

// Mutate marks the cached data stale so the next Load refetches without
// joining a fetch already in flight.
func (r *Resource[T]) Mutate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stale = true
	r.gen++
}

func (r *Resource[T]) snapshot(loading bool) Snapshot[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot[T]{
		Data:    r.data,
		HasData: r.hasData,
		Err:     r.err,
		Loading: loading,
	}
}
