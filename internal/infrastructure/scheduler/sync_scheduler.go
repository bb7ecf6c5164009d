package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/commercedash/backend/internal/domain/commerce"
)

// SyncRunner executes one synchronization run. Implemented by the sync
// application service.
type SyncRunner interface {
	RunSync(ctx context.Context, initial bool) (*commerce.SyncResult, error)
}

// SyncSchedulerConfig holds configuration for the periodic sync trigger.
type SyncSchedulerConfig struct {
	// Interval is the time between run starts.
	Interval time.Duration
	// RunTimeout bounds a single run.
	RunTimeout time.Duration
}

// DefaultSyncSchedulerConfig returns the default daily schedule.
func DefaultSyncSchedulerConfig() SyncSchedulerConfig {
	return SyncSchedulerConfig{
		Interval:   24 * time.Hour,
		RunTimeout: time.Hour,
	}
}

// SyncScheduler triggers a sync run on a fixed interval. A run still in
// progress when the next tick fires is observed through the run lock and
// the tick is skipped, never queued.
type SyncScheduler struct {
	config SyncSchedulerConfig
	runner SyncRunner
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewSyncScheduler creates a new periodic sync trigger.
func NewSyncScheduler(config SyncSchedulerConfig, runner SyncRunner, logger *zap.Logger) *SyncScheduler {
	if config.Interval <= 0 {
		config.Interval = 24 * time.Hour
	}
	if config.RunTimeout <= 0 {
		config.RunTimeout = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncScheduler{
		config: config,
		runner: runner,
		logger: logger,
	}
}

// Start starts the trigger loop.
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Sync scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("run_timeout", s.config.RunTimeout),
	)

	return nil
}

// Stop stops the trigger loop and waits for it to drain.
func (s *SyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Sync scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runLoop fires runOnce on every tick until the context ends.
func (s *SyncScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// runOnce executes a single scheduled run with the configured timeout.
func (s *SyncScheduler) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()

	result, err := s.runner.RunSync(runCtx, false)
	if err != nil {
		if errors.Is(err, commerce.ErrSyncAlreadyRunning) {
			s.logger.Warn("Previous sync run still in progress, skipping tick")
			return
		}
		s.logger.Error("Scheduled sync run failed to start", zap.Error(err))
		return
	}

	s.logger.Info("Scheduled sync run completed",
		zap.String("run_id", result.RunID.String()),
		zap.Bool("success", result.Success()),
		zap.Int("total_synced", result.TotalSynced()),
		zap.Int("errors", len(result.Errors)),
	)
}
