// Package worker serializes pipeline runs behind a single-slot guard.
package worker

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Guard runs at most one task at a time. A Submit while a task is in
// flight is dropped, not queued; overlapping triggers are intentionally
// discarded rather than deferred.
type Guard struct {
	busy   atomic.Bool
	closed atomic.Bool
	wg     sync.WaitGroup
}

func NewGuard() *Guard {
	return &Guard{}
}

// Submit claims the slot and runs the task on its own goroutine.
// Returns false when a task is already running or the guard is closed.
func (g *Guard) Submit(task func()) bool {
	if g.closed.Load() {
		return false
	}
	if !g.busy.CompareAndSwap(false, true) {
		zap.S().Warn("Pipeline busy, trigger dropped")
		return false
	}
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer g.busy.Store(false)
		task()
	}()
	return true
}

// Close rejects further submissions and waits for the in-flight task.
func (g *Guard) Close() {
	g.closed.Store(true)
	g.wg.Wait()
}
