package commerce

import (
	"errors"
	"time"
)

// ErrInvalidWindow indicates a window whose start is not before its end.
var ErrInvalidWindow = errors.New("commerce: window start must be before end")

// SyncWindow is the explicit [From, To] creation-time range a fetch covers.
type SyncWindow struct {
	From time.Time
	To   time.Time
	// Historical marks a full-sync window. Fetchers use it to pick the
	// larger page-count safety valve.
	Historical bool
}

// Validate checks the window bounds.
func (w SyncWindow) Validate() error {
	if w.From.IsZero() || w.To.IsZero() || !w.From.Before(w.To) {
		return ErrInvalidWindow
	}
	return nil
}

// Duration returns the window length.
func (w SyncWindow) Duration() time.Duration {
	return w.To.Sub(w.From)
}

// DailyWindow returns the trailing 24h window used by incremental syncs.
func DailyWindow(now time.Time) SyncWindow {
	return SyncWindow{From: now.Add(-24 * time.Hour), To: now}
}

// HistoricalWindow returns the full-sync window of lookbackDays ending now.
// Lookback is capped at maxDays when maxDays > 0; non-positive lookback
// falls back to maxDays.
func HistoricalWindow(now time.Time, lookbackDays, maxDays int) SyncWindow {
	if maxDays > 0 && (lookbackDays <= 0 || lookbackDays > maxDays) {
		lookbackDays = maxDays
	}
	return SyncWindow{From: now.AddDate(0, 0, -lookbackDays), To: now, Historical: true}
}
