package cache

import (
	"context"
	"sync"
)

// LocalRunLock implements RunLock with an in-process flag. Suitable for
// single-instance deployments and testing; used when Redis is not
// configured.
type LocalRunLock struct {
	mu   sync.Mutex
	held bool
}

// NewLocalRunLock creates a new in-process run lock.
func NewLocalRunLock() *LocalRunLock {
	return &LocalRunLock{}
}

// TryAcquire takes the lock unless another run holds it.
func (l *LocalRunLock) TryAcquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

// Release frees the lock.
func (l *LocalRunLock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	return nil
}

var _ RunLock = (*LocalRunLock)(nil)
