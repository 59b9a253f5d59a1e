// Package syncworker keeps the element collection close to the backend and
// expires abandoned editor sessions.
package syncworker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Refresher reloads the element collection. *editor.Collection satisfies it.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Sweeper drops idle sessions. *editor.Registry satisfies it.
type Sweeper interface {
	Sweep(now time.Time) int
}

type Worker struct {
	log             zerolog.Logger
	refresher       Refresher
	sweeper         Sweeper
	refreshInterval time.Duration
	sweepInterval   time.Duration
	refreshTimeout  time.Duration
	maxBackoff      time.Duration
	now             func() time.Time
}

type Options struct {
	RefreshInterval time.Duration
	SweepInterval   time.Duration
	RefreshTimeout  time.Duration
	MaxBackoff      time.Duration
}

func New(log zerolog.Logger, r Refresher, s Sweeper, opts Options) *Worker {
	ri := opts.RefreshInterval
	if ri <= 0 {
		ri = time.Minute
	}
	si := opts.SweepInterval
	if si <= 0 {
		si = time.Minute
	}
	rt := opts.RefreshTimeout
	if rt <= 0 {
		rt = 15 * time.Second
	}
	mb := opts.MaxBackoff
	if mb <= 0 {
		mb = 10 * time.Minute
	}
	return &Worker{
		log:             log,
		refresher:       r,
		sweeper:         s,
		refreshInterval: ri,
		sweepInterval:   si,
		refreshTimeout:  rt,
		maxBackoff:      mb,
		now:             time.Now,
	}
}

// Run refreshes once immediately, then on the refresh interval, backing off
// while the backend keeps failing. Sweeps run on their own interval. It
// returns when ctx is done.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || (w.refresher == nil && w.sweeper == nil) {
		return
	}

	var (
		refresh  *time.Timer
		refreshC <-chan time.Time
	)
	if w.refresher != nil {
		refresh = time.NewTimer(0)
		defer refresh.Stop()
		refreshC = refresh.C
	}

	sweep := time.NewTicker(w.sweepInterval)
	defer sweep.Stop()

	var consecutiveFailures int
	for {
		select {
		case <-ctx.Done():
			return
		case <-refreshC:
			if err := w.refreshOnce(ctx); err != nil {
				consecutiveFailures++
			} else {
				consecutiveFailures = 0
			}
			refresh.Reset(backoffDuration(w.refreshInterval, w.maxBackoff, consecutiveFailures))
		case <-sweep.C:
			w.sweepOnce()
		}
	}
}

func (w *Worker) refreshOnce(ctx context.Context) error {
	rctx, cancel := context.WithTimeout(ctx, w.refreshTimeout)
	defer cancel()

	if err := w.refresher.Refresh(rctx); err != nil {
		if ctx.Err() == nil {
			w.log.Warn().Err(err).Msg("background collection refresh failed")
		}
		return err
	}
	return nil
}

func (w *Worker) sweepOnce() int {
	if w.sweeper == nil {
		return 0
	}
	return w.sweeper.Sweep(w.now())
}

func backoffDuration(base, ceiling time.Duration, failures int) time.Duration {
	if base <= 0 {
		base = time.Minute
	}
	if failures <= 0 {
		return base
	}

	// base * 2^failures, capped.
	if failures > 6 {
		failures = 6
	}
	d := base * time.Duration(1<<failures)
	if ceiling > 0 && d > ceiling {
		return ceiling
	}
	return d
}
