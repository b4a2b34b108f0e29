package preflight

import (
	"context"
	"strings"

	"textifier/internal/config"
	"textifier/internal/deps"
	"textifier/internal/models"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Optional checks never block a job.
	Optional bool
}

// ModelChecker reports whether a named model is installed.
type ModelChecker interface {
	Check(kind models.Kind, name string) error
}

// RunAll executes the checks for cfg. The output directory is only checked
// when configured.
func RunAll(ctx context.Context, cfg *config.Config, checker ModelChecker) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	if strings.TrimSpace(cfg.Paths.OutputDir) != "" {
		results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	}
	results = append(results, CheckDirectoryReadable("Models directory", cfg.Paths.ModelsDir))

	for _, status := range CheckSystemDeps(ctx, cfg) {
		results = append(results, fromStatus(status))
	}

	if checker != nil {
		results = append(results,
			CheckModel(checker, models.KindTranscription, cfg.Transcription.Model),
			CheckModel(checker, models.KindTranslation, cfg.Translation.Model),
		)
		if probe := cfg.Hardware.ProbeModel; probe != "" && probe != cfg.Transcription.Model {
			r := CheckModel(checker, models.KindTranscription, probe)
			r.Name = "Probe model"
			results = append(results, r)
		}
	}

	results = append(results, CheckLanguages(cfg)...)
	return results
}

// Failed returns the required checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			failed = append(failed, r)
		}
	}
	return failed
}

func fromStatus(s deps.Status) Result {
	detail := s.Command
	if s.Detail != "" {
		detail += " (" + s.Detail + ")"
	}
	return Result{Name: s.Name, Passed: s.Available, Detail: detail, Optional: s.Optional}
}
