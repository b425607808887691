// backend/src/services/scheduler.go
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/username/monbudget/backend/src/logger"
)

// RecurrenceScheduler runs the pending batch on a fixed interval, in addition
// to the login trigger. It runs once right after Start.
type RecurrenceScheduler struct {
	runner   PendingRunner
	interval time.Duration

	mu        sync.Mutex
	started   bool
	closed    bool
	closeChan chan struct{}
	wg        sync.WaitGroup
}

func NewRecurrenceScheduler(runner PendingRunner, interval time.Duration) *RecurrenceScheduler {
	return &RecurrenceScheduler{
		runner:    runner,
		interval:  interval,
		closeChan: make(chan struct{}),
	}
}

// Start launches the ticker goroutine. A non-positive interval disables the scheduler.
func (s *RecurrenceScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("recurrence scheduler is stopped")
	}
	if s.started {
		return fmt.Errorf("recurrence scheduler already started")
	}
	if s.interval <= 0 {
		logger.L.Info("Recurrence scheduler disabled", "interval", s.interval.String())
		return nil
	}
	s.started = true

	s.wg.Add(1)
	go s.loop(ctx)
	logger.L.Info("Recurrence scheduler started", "interval", s.interval.String())
	return nil
}

func (s *RecurrenceScheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.closeChan:
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *RecurrenceScheduler) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logger.L.Error("Scheduled recurrence batch panicked", "panic", r)
		}
	}()
	result, err := s.runner.ExecuteAllPendingRecurrences(ctx)
	if err != nil {
		logger.L.Error("Scheduled recurrence batch failed", "error", err)
		return
	}
	logger.L.Info("Scheduled recurrence batch done", "executed", result.TotalExecuted, "errors", len(result.Errors))
}

// Stop signals the loop to exit and waits for an in-flight batch, bounded by ctx.
func (s *RecurrenceScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.closeChan)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.L.Info("Recurrence scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
