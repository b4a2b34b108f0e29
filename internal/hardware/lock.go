package hardware

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"textifier/internal/services"
)

const lockRetryDelay = 250 * time.Millisecond

// ErrDeviceBusy reports that a device lock could not be taken in time.
var ErrDeviceBusy = fmt.Errorf("device busy: %w", services.ErrTimeout)

// Locks serializes jobs per backend. Inside the process a one-slot semaphore
// per backend orders goroutines; across processes a lock file under dir does
// the same. An empty dir disables file locks.
type Locks struct {
	dir     string
	timeout time.Duration

	mu    sync.Mutex
	slots map[Backend]chan struct{}
}

// NewLocks constructs per-backend locks. timeout <= 0 waits until ctx ends.
func NewLocks(dir string, timeout time.Duration) *Locks {
	return &Locks{dir: dir, timeout: timeout, slots: make(map[Backend]chan struct{})}
}

func (l *Locks) slot(backend Backend) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[backend]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[backend] = ch
	}
	return ch
}

// Acquire blocks until profile's backend is free and returns an idempotent
// release function.
func (l *Locks) Acquire(ctx context.Context, profile DeviceProfile) (func(), error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	slot := l.slot(profile.Backend)
	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return nil, l.waitError(profile, ctx.Err())
	}

	var fileLock *flock.Flock
	if l.dir != "" {
		if err := os.MkdirAll(l.dir, 0o755); err != nil {
			<-slot
			return nil, fmt.Errorf("create lock dir: %w", err)
		}
		fileLock = flock.New(l.LockPath(profile.Backend))
		locked, err := fileLock.TryLockContext(ctx, lockRetryDelay)
		if err != nil || !locked {
			<-slot
			if err == nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return nil, l.waitError(profile, ctx.Err())
			}
			return nil, fmt.Errorf("lock %s: %w", profile.Backend, err)
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if fileLock != nil {
				_ = fileLock.Unlock()
			}
			<-slot
		})
	}, nil
}

// LockPath returns the lock file used for backend.
func (l *Locks) LockPath(backend Backend) string {
	return filepath.Join(l.dir, string(backend)+".lock")
}

func (l *Locks) waitError(profile DeviceProfile, cause error) error {
	if errors.Is(cause, context.Canceled) {
		return cause
	}
	return fmt.Errorf("%w: %s still held after %s", ErrDeviceBusy, profile.Backend, l.timeout)
}
