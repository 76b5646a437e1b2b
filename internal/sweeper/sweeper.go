// Package sweeper runs a function on a fixed interval in a goroutine that the
// caller owns: Start launches it, Stop cancels it and waits for it to exit.
package sweeper

import (
	"context"
	"sync"
	"time"
)

type Sweeper struct {
	interval time.Duration
	fn       func(now time.Time)

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

// New returns a stopped sweeper. A non-positive interval makes Start a no-op.
func New(interval time.Duration, fn func(now time.Time)) *Sweeper {
	return &Sweeper{interval: interval, fn: fn}
}

// Start launches the background loop. Calling Start on a running or stopped
// sweeper does nothing.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil || s.stopped || s.interval <= 0 || s.fn == nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(ctx, s.done)
}

func (s *Sweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.fn(now)
		}
	}
}

// Stop cancels the loop and blocks until the in-flight sweep, if any, returns.
// It is safe to call more than once.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.stopped = true
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
