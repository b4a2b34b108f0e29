package hardware

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

func TestLocksSerializeBackend(t *testing.T) {
	locks := NewLocks(t.TempDir(), 50*time.Millisecond)
	gpu := DeviceProfile{BackendCUDA, PrecisionFloat16}

	release, err := locks.Acquire(context.Background(), gpu)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(locks.LockPath(BackendCUDA)); err != nil {
		t.Fatalf("lock file missing: %v", err)
	}

	if _, err := locks.Acquire(context.Background(), DeviceProfile{BackendCUDA, PrecisionInt8}); !errors.Is(err, ErrDeviceBusy) {
		t.Fatalf("expected ErrDeviceBusy, got %v", err)
	}

	cpuRelease, err := locks.Acquire(context.Background(), DeviceProfile{BackendCPU, PrecisionInt8})
	if err != nil {
		t.Fatalf("independent backend should not block: %v", err)
	}
	cpuRelease()

	release()
	release()

	again, err := locks.Acquire(context.Background(), gpu)
	if err != nil {
		t.Fatalf("reacquire after release: %v", err)
	}
	again()
}

func TestLocksAcrossInstancesUseFiles(t *testing.T) {
	dir := t.TempDir()
	first := NewLocks(dir, 0)
	second := NewLocks(dir, 100*time.Millisecond)
	cpu := DeviceProfile{BackendCPU, PrecisionInt8}

	release, err := first.Acquire(context.Background(), cpu)
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	if _, err := second.Acquire(context.Background(), cpu); !errors.Is(err, ErrDeviceBusy) {
		t.Fatalf("expected file lock contention, got %v", err)
	}
}

func TestLocksHonorCancellation(t *testing.T) {
	locks := NewLocks("", 0)
	cpu := DeviceProfile{BackendCPU, PrecisionInt8}
	release, err := locks.Acquire(context.Background(), cpu)
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := locks.Acquire(ctx, cpu); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
