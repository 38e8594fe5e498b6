package ai

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

const (
	// DefaultPoolSize caps concurrent in-flight remote AI calls
	DefaultPoolSize = 4
	// DefaultCallTimeout is how long a caller waits on one remote call
	DefaultCallTimeout = 60 * time.Second
)

// callPool bounds concurrent remote calls so slow external I/O cannot stall
// unrelated request handling. Each call gets a fixed timeout; on timeout the
// caller moves on and the in-flight call is abandoned (no cancellation is
// propagated to the remote side).
type callPool struct {
	sem     *semaphore.Weighted
	timeout time.Duration
}

func newCallPool(size int64, timeout time.Duration) *callPool {
	if size <= 0 {
		size = DefaultPoolSize
	}
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &callPool{
		sem:     semaphore.NewWeighted(size),
		timeout: timeout,
	}
}

// run executes fn on a pool slot and waits up to the call timeout for its
// result. The slot is released when fn returns, even after the caller has
// given up on it.
func (p *callPool) run(ctx context.Context, fn func(context.Context) (string, error)) (string, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)

	// The call outlives a caller timeout, so detach it from the request
	// context and give it its own deadline.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	go func() {
		defer p.sem.Release(1)
		defer cancel()
		text, err := fn(callCtx)
		done <- result{text: text, err: err}
	}()

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.text, r.err
	case <-timer.C:
		return "", context.DeadlineExceeded
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
