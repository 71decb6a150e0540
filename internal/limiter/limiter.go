// SPDX-License-Identifier: MPL-2.0

// Package limiter bounds how many filesystem operations run at once.
//
// Callers beyond the bound wait in strict FIFO order. The bound is a fixed
// constant rather than a function of GOMAXPROCS because discovery is limited
// by filesystem latency, not CPU.
package limiter

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// DefaultConcurrency is the number of tasks TaskAll keeps in flight.
const DefaultConcurrency = 20

// Limiter gates function calls so at most n run concurrently.
type Limiter struct {
	sem     *semaphore.Weighted
	size    int
	running atomic.Int32
	waiting atomic.Int32
}

// New returns a Limiter admitting n concurrent calls. Values below 1 are
// treated as 1.
func New(n int) *Limiter {
	if n < 1 {
		n = 1
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(n)), size: n}
}

// Do runs fn once a slot is free. Waiters are admitted in the order they
// called Do. If ctx is done before a slot frees up, Do returns ctx.Err()
// without running fn.
func (l *Limiter) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	l.waiting.Add(1)
	err := l.sem.Acquire(ctx, 1)
	l.waiting.Add(-1)
	if err != nil {
		return err
	}
	defer l.sem.Release(1)

	l.running.Add(1)
	defer l.running.Add(-1)

	return fn(ctx)
}

// Size returns the configured bound.
func (l *Limiter) Size() int { return l.size }

// Running returns the number of calls currently executing.
func (l *Limiter) Running() int { return int(l.running.Load()) }

// Waiting returns the number of calls blocked on a slot.
func (l *Limiter) Waiting() int { return int(l.waiting.Load()) }

// TaskAll maps fn over inputs with DefaultConcurrency calls in flight.
func TaskAll[In, Out any](ctx context.Context, inputs []In, fn func(ctx context.Context, in In) (Out, error)) ([]Out, error) {
	return Map(ctx, New(DefaultConcurrency), inputs, fn)
}

// Map applies fn to every input through l and returns the results in input
// order. The first error cancels the context handed to the remaining calls
// and is returned once every started call has settled; no partial results
// are returned.
func Map[In, Out any](ctx context.Context, l *Limiter, inputs []In, fn func(ctx context.Context, in In) (Out, error)) ([]Out, error) {
	results := make([]Out, len(inputs))
	if len(inputs) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, in := range inputs {
		g.Go(func() error {
			return l.Do(gctx, func(ctx context.Context) error {
				out, err := fn(ctx, in)
				if err != nil {
					return err
				}
				results[i] = out
				return nil
			})
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
