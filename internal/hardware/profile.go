package hardware

import (
	"fmt"
	"strings"
)

// Backend identifies a compute device family.
type Backend string

const (
	BackendCUDA Backend = "cuda"
	BackendCPU  Backend = "cpu"
)

// Precision identifies the numeric type used for model weights and compute.
type Precision string

const (
	PrecisionFloat16     Precision = "float16"
	PrecisionInt8Float16 Precision = "int8_float16"
	PrecisionInt8        Precision = "int8"
	PrecisionFloat32     Precision = "float32"
)

// DeviceProfile is the immutable device choice for one job.
type DeviceProfile struct {
	Backend   Backend
	Precision Precision
}

// String renders the profile as "backend:precision".
func (p DeviceProfile) String() string {
	return string(p.Backend) + ":" + string(p.Precision)
}

// IsGPU reports whether the profile targets an accelerator.
func (p DeviceProfile) IsGPU() bool {
	return p.Backend == BackendCUDA
}

// DefaultCandidates is the fallback order used when none is configured.
var DefaultCandidates = []DeviceProfile{
	{BackendCUDA, PrecisionFloat16},
	{BackendCUDA, PrecisionInt8},
	{BackendCPU, PrecisionInt8},
}

// ExtendedCandidates adds the mixed and full precision steps between the
// defaults, for machines where the narrow types are unsupported.
var ExtendedCandidates = []DeviceProfile{
	{BackendCUDA, PrecisionFloat16},
	{BackendCUDA, PrecisionInt8Float16},
	{BackendCUDA, PrecisionInt8},
	{BackendCUDA, PrecisionFloat32},
	{BackendCPU, PrecisionInt8},
	{BackendCPU, PrecisionFloat32},
}

// ParseCandidate parses "backend:precision", e.g. "cuda:float16".
func ParseCandidate(value string) (DeviceProfile, error) {
	raw := strings.ToLower(strings.TrimSpace(value))
	backend, precision, ok := strings.Cut(raw, ":")
	if !ok {
		return DeviceProfile{}, fmt.Errorf("device candidate %q: want backend:precision", value)
	}
	p := DeviceProfile{Backend: Backend(backend), Precision: Precision(precision)}
	switch p.Backend {
	case BackendCUDA, BackendCPU:
	default:
		return DeviceProfile{}, fmt.Errorf("device candidate %q: unsupported backend %q", value, backend)
	}
	switch p.Precision {
	case PrecisionFloat16, PrecisionInt8Float16, PrecisionInt8, PrecisionFloat32:
	default:
		return DeviceProfile{}, fmt.Errorf("device candidate %q: unsupported precision %q", value, precision)
	}
	// Half precision is a GPU-only type.
	if p.Backend == BackendCPU && (p.Precision == PrecisionFloat16 || p.Precision == PrecisionInt8Float16) {
		return DeviceProfile{}, fmt.Errorf("device candidate %q: cpu does not support %s", value, precision)
	}
	return p, nil
}

// ParseCandidates parses a list of candidates, keeping order and dropping
// duplicates. An empty list yields DefaultCandidates.
func ParseCandidates(values []string) ([]DeviceProfile, error) {
	if len(values) == 0 {
		return append([]DeviceProfile(nil), DefaultCandidates...), nil
	}
	out := make([]DeviceProfile, 0, len(values))
	seen := make(map[DeviceProfile]struct{}, len(values))
	for _, value := range values {
		p, err := ParseCandidate(value)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}
