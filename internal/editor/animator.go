package editor

import (
	"context"
	"sync"
	"time"

	"fibermap/editor-go/internal/geo"
)

// DefaultStepInterval spaces animated vertices.
const DefaultStepInterval = 200 * time.Millisecond

// Animator replays vertices one at a time: step i is applied i*interval after
// the run starts. Starting a new run cancels the previous one.
type Animator struct {
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewAnimator(interval time.Duration) *Animator {
	if interval <= 0 {
		interval = DefaultStepInterval
	}
	return &Animator{interval: interval}
}

// Start cancels any pending run and schedules steps. apply returning false
// ends the run early.
func (a *Animator) Start(steps []geo.Coordinate, apply func(i int, c geo.Coordinate) bool) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
	}
	a.cancel = cancel
	a.done = done
	a.mu.Unlock()

	steps = geo.Clone(steps)
	go a.run(ctx, done, steps, apply)
}

func (a *Animator) run(ctx context.Context, done chan struct{}, steps []geo.Coordinate, apply func(int, geo.Coordinate) bool) {
	defer close(done)

	start := time.Now()
	for i, c := range steps {
		if i > 0 {
			due := start.Add(time.Duration(i) * a.interval)
			timer := time.NewTimer(time.Until(due))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
		if ctx.Err() != nil {
			return
		}
		if !apply(i, c) {
			return
		}
	}
}

// Stop cancels the pending run, if any. It does not wait for it.
func (a *Animator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
}

// Wait blocks until the most recent run has finished or been cancelled.
func (a *Animator) Wait() {
	a.mu.Lock()
	done := a.done
	a.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Running reports whether a run is still in progress.
func (a *Animator) Running() bool {
	a.mu.Lock()
	done := a.done
	a.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}
