package workflow

import (
	"context"
	"errors"
	"log/slog"

	"textifier/internal/hardware"
	"textifier/internal/logging"
)

// resolveDevice returns the pinned profile when set, otherwise resolves one.
// The result is stored on the job for the rest of its life.
func (m *Manager) resolveDevice(ctx context.Context, job *Job, pinned *hardware.DeviceProfile) (hardware.DeviceProfile, error) {
	job.setStage(StageDevice, "resolving device")
	var (
		profile hardware.DeviceProfile
		err     error
	)
	switch {
	case pinned != nil:
		profile = *pinned
	case m.deps.Resolver == nil:
		return zeroProfile, errors.New("resolve device: no resolver configured")
	default:
		profile, err = m.deps.Resolver.Resolve(ctx)
		if err != nil {
			return zeroProfile, err
		}
	}
	job.update(func(p *Progress) { p.Device = profile.String() })
	return profile, nil
}

// lockDevice takes the device lock for the model-bound part of a job.
func (m *Manager) lockDevice(ctx context.Context, profile hardware.DeviceProfile, logger *slog.Logger) (func(), error) {
	if m.deps.Locks == nil {
		return func() {}, nil
	}
	logger.Debug("waiting for device", logging.String(logging.FieldDevice, profile.String()))
	return m.deps.Locks.Acquire(ctx, profile)
}

// closeModel closes a model handle and logs a failure without failing the job.
func closeModel(logger *slog.Logger, name string, closer interface{ Close() error }) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.WarnWithContext(logger, "model close failed", "model_close_failed",
			logging.String("model", name),
			logging.Error(err),
			logging.String(logging.FieldImpact, "worker process may linger until exit"),
		)
	}
}
