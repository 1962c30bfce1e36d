package availability

import (
	"context"
	"sync"
	"time"
)

// lockTable hands out one exclusive lock per (restaurant, date, bucket)
// key. Contention stays proportional to real concurrent demand on the same
// slot; unrelated restaurants never queue behind each other.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]chan struct{})}
}

func (t *lockTable) sem(key string) chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	sem, ok := t.locks[key]
	if !ok {
		sem = make(chan struct{}, 1)
		t.locks[key] = sem
	}
	return sem
}

// acquire takes the key's lock, giving up after wait.
func (t *lockTable) acquire(ctx context.Context, key string, wait time.Duration) error {
	sem := t.sem(key)
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrLockTimeout
	}
}

func (t *lockTable) release(key string) {
	<-t.sem(key)
}
