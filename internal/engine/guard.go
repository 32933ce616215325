package engine

import "sync/atomic"

// reentrancyGuard is a process-wide mutual-exclusion flag around every
// mutating operation. External collaborators (tokens, feeds) run inside
// guarded sections; if one calls back into the engine the nested enter
// fails immediately instead of deadlocking or executing, which is the
// point: a mutex would self-deadlock on same-goroutine reentry and a
// second goroutine must be rejected, not queued.
type reentrancyGuard struct {
	locked atomic.Bool
}

func (g *reentrancyGuard) enter() error {
	if !g.locked.CompareAndSwap(false, true) {
		return ErrReentrantCall
	}
	return nil
}

func (g *reentrancyGuard) exit() {
	g.locked.Store(false)
}
