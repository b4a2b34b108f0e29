package preflight

import (
	"context"
	"fmt"
	"strings"
	"time"

	"textifier/internal/hardware"
)

const gpuQueryTimeout = 5 * time.Second

// GPUQuery lists accelerators; hardware.QueryGPUs in production.
type GPUQuery func(ctx context.Context) ([]hardware.GPU, error)

// CheckGPUs reports the accelerators visible to the driver tool. A machine
// without a GPU passes with a note since resolution falls back to the CPU.
func CheckGPUs(ctx context.Context, query GPUQuery) Result {
	const name = "GPUs"
	if query == nil {
		query = hardware.QueryGPUs
	}
	ctx, cancel := context.WithTimeout(ctx, gpuQueryTimeout)
	defer cancel()

	gpus, err := query(ctx)
	if err != nil {
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("none detected (%v)", err)}
	}
	if len(gpus) == 0 {
		return Result{Name: name, Optional: true, Detail: "none detected"}
	}
	parts := make([]string, 0, len(gpus))
	for _, gpu := range gpus {
		parts = append(parts, fmt.Sprintf("#%d %s %d MiB", gpu.Index, gpu.Name, gpu.MemoryMiB))
	}
	return Result{
		Name:     name,
		Passed:   true,
		Optional: true,
		Detail:   strings.Join(parts, "; ") + " (driver " + gpus[0].DriverVersion + ")",
	}
}
