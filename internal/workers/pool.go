package workers

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Pool bounds the number of comparisons running at once. Parsing a large PDF
// is CPU and memory heavy, so unbounded concurrency would let a burst of
// uploads take the service down.
type Pool struct {
	sem       chan struct{}
	started   time.Time
	closed    chan struct{}
	closeOnce sync.Once
}

// Stats is a point-in-time snapshot of the pool.
type Stats struct {
	Enabled  bool   `json:"enabled"`
	Capacity int    `json:"capacity"`
	Idle     int    `json:"idle"`
	InUse    int    `json:"in_use"`
	Uptime   string `json:"uptime"`
}

// ErrPoolClosed is returned by Acquire after Close.
var ErrPoolClosed = errors.New("worker pool is closed")

// NewPool creates a pool with the given capacity. A non-positive size returns
// an error; callers treat that as "pool disabled".
func NewPool(size int) (*Pool, error) {
	if size <= 0 {
		return nil, errors.New("worker pool disabled (size <= 0)")
	}
	p := &Pool{
		sem:     make(chan struct{}, size),
		started: time.Now(),
		closed:  make(chan struct{}),
	}
	for i := 0; i < size; i++ {
		p.sem <- struct{}{}
	}
	return p, nil
}

// Acquire blocks until a slot is free, the context ends, or the pool closes.
func (p *Pool) Acquire(ctx context.Context) error {
	select {
	case <-p.closed:
		return ErrPoolClosed
	default:
	}

	select {
	case <-p.sem:
		return nil
	case <-p.closed:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a slot to the pool.
func (p *Pool) Release() {
	select {
	case p.sem <- struct{}{}:
	default:
		// Release without a matching Acquire; ignore.
	}
}

// Close shuts the pool down. Safe to call multiple times and from multiple
// goroutines.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.closed)
	})
}

// Stats reports capacity and usage.
func (p *Pool) Stats() Stats {
	select {
	case <-p.closed:
		return Stats{}
	default:
	}
	idle := len(p.sem)
	capacity := cap(p.sem)
	return Stats{
		Enabled:  true,
		Capacity: capacity,
		Idle:     idle,
		InUse:    capacity - idle,
		Uptime:   time.Since(p.started).Round(time.Second).String(),
	}
}
