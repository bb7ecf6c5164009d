package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commercedash/backend/internal/domain/commerce"
)

type countingRunner struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *countingRunner) RunSync(ctx context.Context, initial bool) (*commerce.SyncResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	result := commerce.NewSyncResult(initial)
	result.OrdersSynced = 1
	return result.Finish(), nil
}

func (r *countingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestSyncScheduler_RunsOnInterval(t *testing.T) {
	runner := &countingRunner{}
	scheduler := NewSyncScheduler(SyncSchedulerConfig{
		Interval:   20 * time.Millisecond,
		RunTimeout: time.Second,
	}, runner, nil)

	require.NoError(t, scheduler.Start(context.Background()))
	defer scheduler.Stop(context.Background())

	assert.Eventually(t, func() bool {
		return runner.count() >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestSyncScheduler_StopHaltsLoop(t *testing.T) {
	runner := &countingRunner{}
	scheduler := NewSyncScheduler(SyncSchedulerConfig{
		Interval:   10 * time.Millisecond,
		RunTimeout: time.Second,
	}, runner, nil)

	require.NoError(t, scheduler.Start(context.Background()))
	require.NoError(t, scheduler.Stop(context.Background()))

	callsAfterStop := runner.count()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, callsAfterStop, runner.count())
}

func TestSyncScheduler_SkipsWhenRunInProgress(t *testing.T) {
	runner := &countingRunner{err: commerce.ErrSyncAlreadyRunning}
	scheduler := NewSyncScheduler(SyncSchedulerConfig{
		Interval:   10 * time.Millisecond,
		RunTimeout: time.Second,
	}, runner, nil)

	require.NoError(t, scheduler.Start(context.Background()))
	defer scheduler.Stop(context.Background())

	// The rejection is tolerated, the loop keeps ticking
	assert.Eventually(t, func() bool {
		return runner.count() >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestSyncScheduler_StartStopIdempotent(t *testing.T) {
	scheduler := NewSyncScheduler(DefaultSyncSchedulerConfig(), &countingRunner{}, nil)

	require.NoError(t, scheduler.Start(context.Background()))
	require.NoError(t, scheduler.Start(context.Background()))
	require.NoError(t, scheduler.Stop(context.Background()))
	require.NoError(t, scheduler.Stop(context.Background()))
}
