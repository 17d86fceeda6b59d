package revshare

import (
	"context"
	"sync"
)

// Executor owns a Ledger and runs operations against it one at a time on a
// single goroutine. It is safe for concurrent use.
type Executor struct {
	ledger    *Ledger
	jobs      chan job
	terminate chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

type job struct {
	fn   func(*Ledger) error
	done chan error
}

// NewExecutor starts the executor goroutine for l. The caller must not use
// l directly afterwards.
func NewExecutor(l *Ledger) *Executor {
	e := &Executor{
		ledger:    l,
		jobs:      make(chan job),
		terminate: make(chan struct{}),
	}
	ready := make(chan struct{})
	e.wg.Add(1)
	go e.run(ready)
	<-ready
	return e
}

func (e *Executor) run(ready chan struct{}) {
	defer e.wg.Done()
	close(ready)
	for {
		select {
		case j := <-e.jobs:
			j.done <- j.fn(e.ledger)
		case <-e.terminate:
			return
		}
	}
}

// Do runs fn on the executor goroutine and returns its error. Once fn has
// been accepted it always runs to completion, whatever happens to ctx.
func (e *Executor) Do(ctx context.Context, fn func(*Ledger) error) error {
	if fn == nil {
		return ErrNilParam
	}
	j := job{fn: fn, done: make(chan error, 1)}
	select {
	case <-e.terminate:
		return ErrExecutorClosed
	default:
	}
	select {
	case e.jobs <- j:
	case <-e.terminate:
		return ErrExecutorClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-j.done
}

// Close stops accepting operations and waits for the running one to finish.
// It does not close the ledger.
func (e *Executor) Close() {
	e.closeOnce.Do(func() { close(e.terminate) })
	e.wg.Wait()
}
