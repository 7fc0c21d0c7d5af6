// Package scheduler drives the periodic recomputation: a short-period tick
// refreshing register state and a long-period tick refreshing the
// dataset-dependent dashboard cards.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// TickFunc runs one scheduled refresh. The context is cancelled on Stop;
// a tick still in flight after that must drop its late result.
type TickFunc func(ctx context.Context)

// Scheduler owns the two timers. Start and Stop are idempotent; Stop cancels
// both timers deterministically and is safe to call when never started.
type Scheduler struct {
	registerEvery time.Duration
	datasetsEvery time.Duration
	onRegister    TickFunc
	onDatasets    TickFunc

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup
}

func New(registerEvery, datasetsEvery time.Duration, onRegister, onDatasets TickFunc) *Scheduler {
	return &Scheduler{
		registerEvery: registerEvery,
		datasetsEvery: datasetsEvery,
		onRegister:    onRegister,
		onDatasets:    onDatasets,
	}
}

// Start launches both timer loops. A second Start while running is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	s.wg.Add(2)
	go s.loop(ctx, "register", s.registerEvery, s.onRegister)
	go s.loop(ctx, "datasets", s.datasetsEvery, s.onDatasets)
	log.Info().
		Dur("register_every", s.registerEvery).
		Dur("datasets_every", s.datasetsEvery).
		Msg("scheduler started")
}

// Stop cancels both timers and waits for in-flight ticks to return.
// Idempotent: safe when never started or already stopped.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, name string, every time.Duration, tick TickFunc) {
	defer s.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("timer", name).Msg("scheduler timer stopped")
			return
		case <-ticker.C:
			tick(ctx)
		}
	}
}
