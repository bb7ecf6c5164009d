// Package sync orchestrates one full synchronization run: every configured
// platform is fetched over the run window, normalized records are upserted,
// and the outcome is folded into a single SyncResult summary.
package sync

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/commercedash/backend/internal/domain/commerce"
	"github.com/commercedash/backend/internal/infrastructure/cache"
)

// Config holds the orchestrator settings.
type Config struct {
	// InitialLookbackDays is the historical window size of an initial run.
	InitialLookbackDays int
}

// Service runs synchronization across all configured platforms. Platforms
// are processed sequentially in the order given at construction; entity
// failures are isolated so one broken platform or endpoint never aborts the
// rest of the run.
type Service struct {
	platforms []commerce.Platform
	store     commerce.RecordStore
	lock      cache.RunLock
	config    Config
	logger    *zap.Logger

	mu      sync.RWMutex
	lastRun *commerce.SyncResult
}

// NewService creates the sync orchestrator. Platform order is preserved;
// callers list the auction platform before the stores.
func NewService(platforms []commerce.Platform, store commerce.RecordStore, lock cache.RunLock, config Config, logger *zap.Logger) *Service {
	if lock == nil {
		lock = cache.NewLocalRunLock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.InitialLookbackDays <= 0 {
		config.InitialLookbackDays = 90
	}
	return &Service{
		platforms: platforms,
		store:     store,
		lock:      lock,
		config:    config,
		logger:    logger,
	}
}

// RunSync executes one complete run and returns its summary. Overlapping
// runs are rejected with commerce.ErrSyncAlreadyRunning, never queued. An
// initial run covers the historical lookback window, a regular run the
// trailing 24 hours.
func (s *Service) RunSync(ctx context.Context, initial bool) (*commerce.SyncResult, error) {
	acquired, err := s.lock.TryAcquire(ctx)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, commerce.ErrSyncAlreadyRunning
	}
	defer func() {
		// Release must happen even when the run context is already gone
		if err := s.lock.Release(context.Background()); err != nil {
			s.logger.Error("Failed to release run lock", zap.Error(err))
		}
	}()

	result := commerce.NewSyncResult(initial)

	now := time.Now().UTC()
	window := commerce.DailyWindow(now)
	if initial {
		window = commerce.HistoricalWindow(now, s.config.InitialLookbackDays, 0)
	}

	s.logger.Info("Sync run started",
		zap.String("run_id", result.RunID.String()),
		zap.Bool("initial", initial),
		zap.Time("window_from", window.From),
		zap.Time("window_to", window.To),
	)

	for _, platform := range s.platforms {
		// Cooperative cancellation between platforms
		if err := ctx.Err(); err != nil {
			result.AddError(platform.Type(), platform.StoreName(), "run", err)
			break
		}
		s.syncPlatform(ctx, platform, window, result)
	}

	result.Finish()

	s.logger.Info("Sync run finished",
		zap.String("run_id", result.RunID.String()),
		zap.Bool("success", result.Success()),
		zap.Int("orders_synced", result.OrdersSynced),
		zap.Int("products_synced", result.ProductsSynced),
		zap.Int("customers_synced", result.CustomersSynced),
		zap.Int("errors", len(result.Errors)),
		zap.Duration("duration", result.FinishedAt.Sub(result.StartedAt)),
	)

	s.mu.Lock()
	s.lastRun = result
	s.mu.Unlock()

	return result, nil
}

// LastRun returns the summary of the most recent run, nil before the first
// one completes.
func (s *Service) LastRun() *commerce.SyncResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun
}

// syncPlatform walks one platform's entities in a fixed order: orders,
// products, customers. A fetch error is recorded and the records fetched
// before it are still written; an unconfigured platform is skipped after
// its first fetch reports so.
func (s *Service) syncPlatform(ctx context.Context, platform commerce.Platform, window commerce.SyncWindow, result *commerce.SyncResult) {
	log := s.logger.With(
		zap.String("platform", string(platform.Type())),
		zap.String("store", platform.StoreName()),
	)

	orders, err := platform.FetchOrders(ctx, window)
	if err != nil {
		if errors.Is(err, commerce.ErrPlatformNotConfigured) {
			log.Warn("Platform not configured, skipping", zap.Error(err))
			result.AddError(platform.Type(), platform.StoreName(), "platform", err)
			return
		}
		result.AddError(platform.Type(), platform.StoreName(), "orders", err)
	}
	if len(orders) > 0 {
		written, upsertErrs := s.store.UpsertOrders(ctx, orders)
		result.OrdersSynced += written
		for _, uerr := range upsertErrs {
			result.AddError(platform.Type(), platform.StoreName(), "orders", uerr)
		}
	}

	if ctx.Err() != nil {
		return
	}

	products, err := platform.FetchProducts(ctx, window)
	if err != nil {
		result.AddError(platform.Type(), platform.StoreName(), "products", err)
	}
	if len(products) > 0 {
		written, upsertErrs := s.store.UpsertProducts(ctx, products)
		result.ProductsSynced += written
		for _, uerr := range upsertErrs {
			result.AddError(platform.Type(), platform.StoreName(), "products", uerr)
		}
	}

	if ctx.Err() != nil {
		return
	}

	customers, err := platform.FetchCustomers(ctx, window)
	if err != nil {
		result.AddError(platform.Type(), platform.StoreName(), "customers", err)
	}
	if len(customers) > 0 {
		written, upsertErrs := s.store.UpsertCustomers(ctx, customers)
		result.CustomersSynced += written
		for _, uerr := range upsertErrs {
			result.AddError(platform.Type(), platform.StoreName(), "customers", uerr)
		}
	}

	log.Info("Platform sync finished",
		zap.Int("orders", len(orders)),
		zap.Int("products", len(products)),
		zap.Int("customers", len(customers)),
	)
}
