package hardware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"textifier/internal/logging"
	"textifier/internal/services"
)

// Prober verifies that a profile is usable. The returned handle, when
// non-nil, is closed by the Resolver whether or not the probe succeeded.
type Prober interface {
	Probe(ctx context.Context, profile DeviceProfile) (io.Closer, error)
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context, profile DeviceProfile) (io.Closer, error)

func (f ProberFunc) Probe(ctx context.Context, profile DeviceProfile) (io.Closer, error) {
	return f(ctx, profile)
}

// Attempt records one probed candidate.
type Attempt struct {
	Profile DeviceProfile
	Err     error
}

// NoUsableDeviceError reports that every candidate failed its probe.
type NoUsableDeviceError struct {
	Attempts []Attempt
}

func (e *NoUsableDeviceError) Error() string {
	if len(e.Attempts) == 0 {
		return "no usable device: no candidates configured"
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Profile, a.Err))
	}
	return "no usable device: " + strings.Join(parts, "; ")
}

// ErrorKind classifies the failure as an environment problem.
func (e *NoUsableDeviceError) ErrorKind() string { return string(services.CategoryEnvironment) }

// Unwrap exposes the per-candidate errors.
func (e *NoUsableDeviceError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

// DeviceLocker serializes access to a backend. *Locks implements it.
type DeviceLocker interface {
	Acquire(ctx context.Context, profile DeviceProfile) (func(), error)
}

// Options configures a Resolver.
type Options struct {
	Candidates []DeviceProfile
	Logger     *slog.Logger
	// Locks, when set, is held around each probe so a probe never loads a
	// model next to a running job on the same backend.
	Locks DeviceLocker
	// OnAttempt observes every probe outcome; Err is nil on success.
	OnAttempt func(Attempt)
}

// Resolver picks the first candidate profile whose probe succeeds.
type Resolver struct {
	prober     Prober
	candidates []DeviceProfile
	locks      DeviceLocker
	logger     *slog.Logger
	onAttempt  func(Attempt)
}

// NewResolver constructs a resolver; empty candidates mean DefaultCandidates.
func NewResolver(prober Prober, opts Options) *Resolver {
	candidates := opts.Candidates
	if len(candidates) == 0 {
		candidates = DefaultCandidates
	}
	return &Resolver{
		prober:     prober,
		candidates: append([]DeviceProfile(nil), candidates...),
		locks:      opts.Locks,
		logger:     logging.NewComponentLogger(opts.Logger, "hardware"),
		onAttempt:  opts.OnAttempt,
	}
}

// Candidates returns the configured candidate order.
func (r *Resolver) Candidates() []DeviceProfile {
	return append([]DeviceProfile(nil), r.candidates...)
}

// Resolve walks the configured candidates.
func (r *Resolver) Resolve(ctx context.Context) (DeviceProfile, error) {
	return r.ResolveWithFallback(ctx, r.candidates)
}

// ResolveWithFallback probes candidates in order and returns the first that
// works. Identical inputs with identical probe outcomes always yield the same
// profile. Context cancellation stops the walk between probes.
func (r *Resolver) ResolveWithFallback(ctx context.Context, candidates []DeviceProfile) (DeviceProfile, error) {
	if r.prober == nil {
		return DeviceProfile{}, errors.New("resolve device: prober is nil")
	}
	logger := logging.WithContext(ctx, r.logger)
	failed := &NoUsableDeviceError{}

	for i, profile := range candidates {
		if err := ctx.Err(); err != nil {
			return DeviceProfile{}, err
		}
		err := r.probe(ctx, profile)
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return DeviceProfile{}, ctx.Err()
		}
		r.observe(Attempt{Profile: profile, Err: err})
		if err == nil {
			logger.Info("device resolved",
				logging.Args(append(logging.DecisionAttrs("device_selection", profile.String(),
					fmt.Sprintf("candidate %d of %d passed probe", i+1, len(candidates))),
					logging.String(logging.FieldDevice, profile.String()),
					logging.Int("failed_candidates", len(failed.Attempts)))...)...)
			return profile, nil
		}
		failed.Attempts = append(failed.Attempts, Attempt{Profile: profile, Err: err})
		logging.WarnWithContext(logger, "device candidate unusable", "device_probe_failed",
			logging.String(logging.FieldDevice, profile.String()),
			logging.Error(err),
			logging.String(logging.FieldImpact, "falling back to the next candidate"),
			logging.String(logging.FieldErrorHint, "check drivers and model files for this backend"),
		)
	}
	return DeviceProfile{}, failed
}

func (r *Resolver) probe(ctx context.Context, profile DeviceProfile) error {
	if r.locks != nil {
		release, err := r.locks.Acquire(ctx, profile)
		if err != nil {
			return err
		}
		defer release()
	}
	handle, err := r.prober.Probe(ctx, profile)
	if handle != nil {
		if closeErr := handle.Close(); closeErr != nil {
			r.logger.Debug("probe teardown failed",
				logging.String(logging.FieldDevice, profile.String()),
				logging.Error(closeErr))
		}
	}
	if err != nil {
		return err
	}
	if handle == nil {
		return errors.New("probe returned no handle")
	}
	return nil
}

func (r *Resolver) observe(a Attempt) {
	if r.onAttempt != nil {
		r.onAttempt(a)
	}
}
