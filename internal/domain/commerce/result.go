package commerce

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// SyncResult
// ---------------------------------------------------------------------------

// SyncResult is the single summary of one complete sync run across all
// platforms. It is the only feedback surface of the pipeline.
type SyncResult struct {
	// RunID identifies the run in logs.
	RunID uuid.UUID `json:"run_id"`
	// Initial reports whether the run used the historical lookback window.
	Initial bool `json:"initial"`
	// StartedAt and FinishedAt bound the run wall-clock time.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	OrdersSynced    int `json:"orders_synced"`
	ProductsSynced  int `json:"products_synced"`
	CustomersSynced int `json:"customers_synced"`

	// Errors collects every platform, entity and record level failure of
	// the run. A non-empty list does not by itself mean the run failed.
	Errors []string `json:"errors"`
}

// NewSyncResult creates a result for a run starting now.
func NewSyncResult(initial bool) *SyncResult {
	return &SyncResult{
		RunID:     uuid.New(),
		Initial:   initial,
		StartedAt: time.Now(),
		Errors:    make([]string, 0),
	}
}

// Success reports the run outcome. A run that synced anything at all is a
// success even with a non-empty error list; only an all-zero run fails.
// Note this conflates "everything failed" with "nothing new to sync" on
// incremental runs; the behavior is kept deliberately.
func (r *SyncResult) Success() bool {
	return r.OrdersSynced+r.ProductsSynced+r.CustomersSynced > 0
}

// TotalSynced returns the number of records written across all entity types.
func (r *SyncResult) TotalSynced() int {
	return r.OrdersSynced + r.ProductsSynced + r.CustomersSynced
}

// AddError records a failure scoped to one platform/store and entity type.
func (r *SyncResult) AddError(platform PlatformType, store, entity string, err error) {
	r.Errors = append(r.Errors, fmt.Sprintf("%s/%s %s: %v", platform, store, entity, err))
}

// Finish stamps the run end time and returns the result for chaining.
func (r *SyncResult) Finish() *SyncResult {
	r.FinishedAt = time.Now()
	return r
}
