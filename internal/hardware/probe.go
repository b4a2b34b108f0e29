package hardware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"textifier/internal/services"
)

// DriverTool is the binary whose presence indicates a usable CUDA driver.
const DriverTool = "nvidia-smi"

// LoadFunc loads a minimal model on profile and returns its handle.
type LoadFunc func(ctx context.Context, profile DeviceProfile) (io.Closer, error)

// ModelProber probes a candidate by loading a small model on it. CUDA
// candidates additionally require the driver tool on PATH, which fails fast on
// machines without a GPU.
type ModelProber struct {
	load     LoadFunc
	lookPath func(string) (string, error)
}

// NewModelProber wraps a model loader.
func NewModelProber(load LoadFunc) *ModelProber {
	return &ModelProber{load: load, lookPath: exec.LookPath}
}

// Probe implements Prober.
func (p *ModelProber) Probe(ctx context.Context, profile DeviceProfile) (io.Closer, error) {
	if p.load == nil {
		return nil, errors.New("probe: no model loader configured")
	}
	if profile.IsGPU() {
		if _, err := p.lookPath(DriverTool); err != nil {
			return nil, services.Wrap(services.ErrExternalTool, "hardware", "probe",
				fmt.Sprintf("%s not found; no CUDA driver available", DriverTool), err)
		}
	}
	return p.load(ctx, profile)
}
