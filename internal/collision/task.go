package collision

import (
	"context"
	"sync"
)

// Task runs the compute stage of a Process on its own goroutine so the main
// loop can do unrelated work in the meantime. At most one compute is in
// flight; the owner must Wait before calling End or the next Begin.
type Task struct {
	mu      sync.Mutex
	done    chan struct{}
	cancel  context.CancelFunc
	err     error
	running bool
}

// Start launches p.Process on a new goroutine. It returns false, without
// starting anything, when a previous compute has not been waited for.
func (t *Task) Start(ctx context.Context, p *Process) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return false
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	t.done = done
	t.cancel = cancel
	t.err = nil
	t.running = true

	go func() {
		defer close(done)
		err := p.Process(ctx)

		t.mu.Lock()
		t.err = err
		t.mu.Unlock()
	}()

	return true
}

// Wait blocks until the in-flight compute returns and reports its error
// (non-nil when the frame was discarded). Wait without a running compute
// returns nil immediately.
func (t *Task) Wait() error {
	t.mu.Lock()
	done, cancel := t.done, t.cancel
	if !t.running {
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()

	<-done

	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
	t.done = nil
	if cancel != nil {
		cancel()
		t.cancel = nil
	}
	return t.err
}

// Cancel asks the in-flight compute to stop and waits for it. A cancelled
// frame leaves no pairs behind.
func (t *Task) Cancel() error {
	t.mu.Lock()
	cancel := t.cancel
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return t.Wait()
}

// Running reports whether a compute has been started and not yet waited for.
func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}
