package hardware

import (
	"context"
	"errors"
	"io"
	"testing"

	"textifier/internal/services"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func TestModelProberRequiresDriverToolForCUDA(t *testing.T) {
	loads := 0
	prober := NewModelProber(func(context.Context, DeviceProfile) (io.Closer, error) {
		loads++
		return nopCloser{}, nil
	})
	prober.lookPath = func(string) (string, error) { return "", errors.New("not found") }

	_, err := prober.Probe(context.Background(), DeviceProfile{BackendCUDA, PrecisionFloat16})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if loads != 0 {
		t.Fatal("model should not load without a driver")
	}

	handle, err := prober.Probe(context.Background(), DeviceProfile{BackendCPU, PrecisionInt8})
	if err != nil || handle == nil {
		t.Fatalf("cpu probe = %v, %v", handle, err)
	}
	if loads != 1 {
		t.Fatalf("loads = %d", loads)
	}
}

func TestParseGPUList(t *testing.T) {
	gpus, err := parseGPUList("0, NVIDIA GeForce RTX 4090, 24564, 550.54\n1, Tesla T4, 15360, 550.54\n")
	if err != nil {
		t.Fatal(err)
	}
	if len(gpus) != 2 || gpus[0].Name != "NVIDIA GeForce RTX 4090" || gpus[1].MemoryMiB != 15360 {
		t.Fatalf("unexpected gpus: %+v", gpus)
	}
	if _, err := parseGPUList("garbage"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestQueryGPUsUsesRunner(t *testing.T) {
	var gotName string
	run := func(_ context.Context, name string, _ ...string) ([]byte, error) {
		gotName = name
		return []byte("0, A100, 40960, 535.1\n"), nil
	}
	gpus, err := queryGPUs(context.Background(), run)
	if err != nil || len(gpus) != 1 || gotName != DriverTool {
		t.Fatalf("queryGPUs = %+v, %v (ran %q)", gpus, err, gotName)
	}
}
