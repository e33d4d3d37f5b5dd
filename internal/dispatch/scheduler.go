package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Scheduler triggers a dispatch tick at the top of every hour.
type Scheduler struct {
	mu     sync.RWMutex
	engine *Engine
	logger *slog.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

func NewScheduler(engine *Engine, logger *slog.Logger) *Scheduler {
	return &Scheduler{engine: engine, logger: logger}
}

// Start begins the scheduler loop. The first tick fires at the next
// top of the hour, then hourly.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)

		for {
			now := time.Now()
			next := now.Truncate(time.Hour).Add(time.Hour)
			timer := time.NewTimer(next.Sub(now))

			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case tick := <-timer.C:
				s.run(ctx, tick)
			}
		}
	}()
}

// Stop cancels the loop and waits for an in-flight tick to finish.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) run(ctx context.Context, now time.Time) {
	summary, err := s.engine.Run(ctx, now, false)
	if err != nil {
		if errors.Is(err, ErrTickRunning) {
			s.logger.Warn("tick skipped, previous tick still running", "at", now)
			return
		}
		s.logger.Error("dispatch tick failed", "at", now, "error", err)
		return
	}
	s.logger.Info("dispatch tick complete",
		"at", summary.EvaluatedAt,
		"due", summary.Due,
		"processed", summary.Processed,
		"failed", summary.Failed)
}
