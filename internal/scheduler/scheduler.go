package scheduler

import (
	"context"
	"log"
	"sync"
	"time"
)

const (
	// DefaultInterval keeps genre lists warm well inside their cache TTL.
	DefaultInterval = 12 * time.Hour

	DefaultWarmTimeout = 2 * time.Minute
)

// Warmer primes caches ahead of demand.
type Warmer interface {
	WarmCache(ctx context.Context)
}

type Scheduler struct {
	warmer   Warmer
	interval time.Duration
	timeout  time.Duration

	startOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

type Option func(*Scheduler)

func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		s.interval = d
	}
}

func WithWarmTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		s.timeout = d
	}
}

func New(w Warmer, opts ...Option) *Scheduler {
	sch := &Scheduler{
		warmer:   w,
		interval: DefaultInterval,
		timeout:  DefaultWarmTimeout,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(sch)
	}
	return sch
}

// Start runs the scheduler: immediate warm on startup, then every interval.
func (sch *Scheduler) Start(ctx context.Context) {
	sch.startOnce.Do(func() {
		ctx, sch.cancel = context.WithCancel(ctx)
		go sch.run(ctx)
	})
}

func (sch *Scheduler) Stop() {
	if sch.cancel != nil {
		sch.cancel()
		<-sch.done
	}
}

func (sch *Scheduler) run(ctx context.Context) {
	defer close(sch.done)

	sch.warm(ctx)

	ticker := time.NewTicker(sch.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sch.warm(ctx)
		}
	}
}

func (sch *Scheduler) warm(ctx context.Context) {
	warmCtx, cancel := context.WithTimeout(ctx, sch.timeout)
	defer cancel()

	start := time.Now()
	sch.warmer.WarmCache(warmCtx)
	log.Printf("scheduler: cache warm completed (took %v)", time.Since(start).Round(time.Millisecond))
}
