package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"textifier/internal/config"
	"textifier/internal/hardware"
)

// Requirement defines an external dependency Textifier relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the binaries cfg needs. The CUDA driver tool is only
// required when a CUDA candidate is configured, and even then is optional
// because resolution falls back to the CPU.
func Requirements(cfg *config.Config) []Requirement {
	reqs := []Requirement{
		{Name: "FFmpeg", Command: cfg.FFmpegBinary(), Description: "Decodes media into 16 kHz mono audio"},
		{Name: "Transcription worker", Command: cfg.Workers.TranscriptionCommand, Description: "Runs the speech model"},
	}
	if cfg.Workers.TranslationCommand != cfg.Workers.TranscriptionCommand {
		reqs = append(reqs, Requirement{Name: "Translation worker", Command: cfg.Workers.TranslationCommand, Description: "Runs the translation model"})
	}
	if wantsCUDA(cfg.Hardware.Candidates) {
		reqs = append(reqs, Requirement{
			Name:        "NVIDIA driver",
			Command:     hardware.DriverTool,
			Description: "Enables CUDA device candidates",
			Optional:    true,
		})
	}
	return reqs
}

func wantsCUDA(candidates []string) bool {
	profiles, err := hardware.ParseCandidates(candidates)
	if err != nil {
		return false
	}
	if len(profiles) == 0 {
		profiles = hardware.DefaultCandidates
	}
	for _, p := range profiles {
		if p.IsGPU() {
			return true
		}
	}
	return false
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Missing returns the required (non-optional) dependencies that are unavailable.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s)
		}
	}
	return missing
}
