package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"textifier/internal/audio"
	"textifier/internal/config"
	"textifier/internal/hardware"
	"textifier/internal/history"
	"textifier/internal/metrics"
	"textifier/internal/models"
	"textifier/internal/versions"
)

// DeviceResolver picks the device profile for a job.
type DeviceResolver interface {
	Resolve(ctx context.Context) (hardware.DeviceProfile, error)
}

// AudioSource decodes a media file into mono 16 kHz samples.
type AudioSource interface {
	Extract(ctx context.Context, mediaPath string) ([]float32, error)
}

// DeviceLocks serializes jobs on one device.
type DeviceLocks interface {
	Acquire(ctx context.Context, profile hardware.DeviceProfile) (func(), error)
}

// Dependencies are the collaborators a Manager drives. History and Metrics
// are optional.
type Dependencies struct {
	Registry models.Registry
	Resolver DeviceResolver
	Audio    AudioSource
	Locks    DeviceLocks
	Versions *versions.Manager
	History  *history.Store
	Metrics  *metrics.Metrics
}

// DefaultDependencies wires the production collaborators from cfg: worker
// backed models, a model-probing resolver, the ffmpeg extractor and
// per-backend locks under the state directory.
func DefaultDependencies(cfg *config.Config, logger *slog.Logger, store *history.Store, m *metrics.Metrics) (Dependencies, error) {
	candidates, err := hardware.ParseCandidates(cfg.Hardware.Candidates)
	if err != nil {
		return Dependencies{}, fmt.Errorf("device candidates: %w", err)
	}
	registry := models.NewWorkerRegistry(cfg, logger)
	locks := NewDeviceLocks(cfg)
	resolver := hardware.NewResolver(hardware.NewModelProber(registry.ProbeLoader()), hardware.Options{
		Candidates: candidates,
		Logger:     logger,
		Locks:      locks,
		OnAttempt: func(a hardware.Attempt) {
			m.DeviceProbe(a.Profile.String(), a.Err == nil)
		},
	})

	return Dependencies{
		Registry: registry,
		Resolver: resolver,
		Audio:    audio.NewExtractor(cfg.FFmpegBinary(), logger),
		Locks:    locks,
		Versions: versions.NewManager(versions.Options{Suffix: cfg.Editing.Suffix, CounterWidth: cfg.Editing.CounterWidth}),
		History:  store,
		Metrics:  m,
	}, nil
}

// NewDeviceLocks returns the per-backend locks for cfg. Lock files live under
// the state directory unless hardware.disable_file_locks is set.
func NewDeviceLocks(cfg *config.Config) *hardware.Locks {
	lockDir := cfg.LockDir()
	if cfg.Hardware.DisableFileLocks {
		lockDir = ""
	}
	return hardware.NewLocks(lockDir, time.Duration(cfg.Hardware.LockTimeoutSeconds)*time.Second)
}
