package engine

import "sync"

// loader coalesces concurrent Load attempts into a single in-flight
// initialization, so several callers racing at startup share one probe
// instead of each running their own.
type loader struct {
	mu       sync.Mutex
	loaded   bool
	inflight *loadCall
}

type loadCall struct {
	done chan struct{}
	err  error
}

// ensure runs fn at most once per loaded lifetime. Concurrent callers
// block on the same in-flight call and share its result. A failed load
// leaves the loader ready for another attempt.
func (l *loader) ensure(fn func() error) error {
	l.mu.Lock()
	if l.loaded {
		l.mu.Unlock()
		return nil
	}
	if c := l.inflight; c != nil {
		l.mu.Unlock()
		<-c.done
		return c.err
	}
	c := &loadCall{done: make(chan struct{})}
	l.inflight = c
	l.mu.Unlock()

	c.err = fn()

	l.mu.Lock()
	l.loaded = c.err == nil
	l.inflight = nil
	l.mu.Unlock()
	close(c.done)
	return c.err
}

func (l *loader) invalidate() {
	l.mu.Lock()
	l.loaded = false
	l.mu.Unlock()
}

func (l *loader) isLoaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}
