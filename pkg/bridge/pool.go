package bridge

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Pool bounds the number of bridge workers running at once. Workers beyond
// the bound wait for a slot; they do not block bridge creation.
type Pool struct {
	sem  *semaphore.Weighted
	size int64
	wg   sync.WaitGroup
}

// DefaultPoolSize is the worker bound used when none is configured.
func DefaultPoolSize() int {
	return 4 * runtime.NumCPU()
}

// NewPool creates a pool running at most size workers; size <= 0 means
// DefaultPoolSize.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = DefaultPoolSize()
	}
	return &Pool{
		sem:  semaphore.NewWeighted(int64(size)),
		size: int64(size),
	}
}

var defaultPool = sync.OnceValue(func() *Pool {
	return NewPool(0)
})

// DefaultPool returns the lazily created process-wide pool.
func DefaultPool() *Pool {
	return defaultPool()
}

// Size returns the worker bound.
func (p *Pool) Size() int {
	return int(p.size)
}

// Go runs fn on a new goroutine once a slot is free. If ctx ends before a
// slot is acquired, fn is called with the context error and without a slot.
func (p *Pool) Go(ctx context.Context, fn func(ctx context.Context, acquireErr error)) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.sem.Acquire(ctx, 1); err != nil {
			fn(ctx, err)
			return
		}
		defer p.sem.Release(1)
		fn(ctx, nil)
	}()
}

// Wait blocks until every worker started on the pool has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}
