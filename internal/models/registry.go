package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"textifier/internal/config"
	"textifier/internal/hardware"
	"textifier/internal/inference"
	"textifier/internal/logging"
	"textifier/internal/services"
	"textifier/internal/services/mbart"
	"textifier/internal/services/whisperx"
	"textifier/internal/translation"
)

// Kind separates transcription and translation weights.
type Kind string

const (
	KindTranscription Kind = "transcription"
	KindTranslation   Kind = "translation"
)

// UnavailableError reports a model that is not installed locally.
type UnavailableError struct {
	Kind Kind
	Name string
	Path string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s model %q is not installed (expected at %s)", e.Kind, e.Name, e.Path)
}

// ErrorKind implements services.ErrorClassifier.
func (e *UnavailableError) ErrorKind() string { return string(services.CategoryModel) }

// Registry hands out model handles. Each handle belongs to one job and must be
// closed by it.
type Registry interface {
	TranscriptionModel(ctx context.Context, name string, profile hardware.DeviceProfile) (inference.Engine, error)
	TranslationModel(ctx context.Context, source, target string, profile hardware.DeviceProfile) (translation.Model, error)
}

type (
	asrStarter func(context.Context, whisperx.Config) (inference.Engine, error)
	mtStarter  func(context.Context, mbart.Config) (translation.Model, error)
)

// WorkerRegistry serves models from the configured models directory through
// worker processes.
type WorkerRegistry struct {
	cfg      *config.Config
	logger   *slog.Logger
	startASR asrStarter
	startMT  mtStarter
}

// NewWorkerRegistry builds a registry for cfg.
func NewWorkerRegistry(cfg *config.Config, logger *slog.Logger) *WorkerRegistry {
	return &WorkerRegistry{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "models"),
		startASR: func(ctx context.Context, c whisperx.Config) (inference.Engine, error) {
			engine, err := whisperx.Start(ctx, c)
			if err != nil {
				return nil, err
			}
			return engine, nil
		},
		startMT: func(ctx context.Context, c mbart.Config) (translation.Model, error) {
			model, err := mbart.Start(ctx, c)
			if err != nil {
				return nil, err
			}
			return model, nil
		},
	}
}

// Path returns where the weights for name are expected.
func (r *WorkerRegistry) Path(kind Kind, name string) string {
	return filepath.Join(r.cfg.Paths.ModelsDir, string(kind), name)
}

// Check reports whether the named model is installed.
func (r *WorkerRegistry) Check(kind Kind, name string) error {
	path := r.Path(kind, name)
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return &UnavailableError{Kind: kind, Name: name, Path: path}
	}
	return nil
}

// Installed lists the installed models of kind, sorted by name.
func (r *WorkerRegistry) Installed(kind Kind) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(r.cfg.Paths.ModelsDir, string(kind)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s models: %w", kind, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (r *WorkerRegistry) startupTimeout() time.Duration {
	return time.Duration(r.cfg.Workers.StartupTimeoutSeconds) * time.Second
}

// TranscriptionModel starts a speech worker for name on profile.
func (r *WorkerRegistry) TranscriptionModel(ctx context.Context, name string, profile hardware.DeviceProfile) (inference.Engine, error) {
	if name == "" {
		name = r.cfg.Transcription.Model
	}
	if err := r.Check(KindTranscription, name); err != nil {
		return nil, err
	}
	started := time.Now()
	engine, err := r.startASR(ctx, whisperx.Config{
		Model:          name,
		ModelPath:      r.Path(KindTranscription, name),
		Command:        r.cfg.Workers.TranscriptionCommand,
		Args:           r.cfg.Workers.TranscriptionArgs,
		Profile:        profile,
		HFToken:        r.cfg.Workers.HuggingFaceToken,
		StartupTimeout: r.startupTimeout(),
		Logger:         r.logger,
	})
	if err != nil {
		return nil, err
	}
	r.logger.Info("transcription model loaded",
		logging.String("model", name),
		logging.String(logging.FieldDevice, profile.String()),
		logging.Duration("load_time", time.Since(started)),
	)
	return engine, nil
}

// TranslationModel checks the pair, then starts the configured translation
// model on profile.
func (r *WorkerRegistry) TranslationModel(ctx context.Context, source, target string, profile hardware.DeviceProfile) (translation.Model, error) {
	if _, err := translation.CheckPair(source, target); err != nil {
		return nil, err
	}
	name := r.cfg.Translation.Model
	if err := r.Check(KindTranslation, name); err != nil {
		return nil, err
	}
	started := time.Now()
	model, err := r.startMT(ctx, mbart.Config{
		Model:          name,
		ModelPath:      r.Path(KindTranslation, name),
		Command:        r.cfg.Workers.TranslationCommand,
		Args:           r.cfg.Workers.TranslationArgs,
		Profile:        profile,
		HFToken:        r.cfg.Workers.HuggingFaceToken,
		StartupTimeout: r.startupTimeout(),
		Logger:         r.logger,
	})
	if err != nil {
		return nil, err
	}
	r.logger.Info("translation model loaded",
		logging.String("model", name),
		logging.String(logging.FieldDevice, profile.String()),
		logging.Duration("load_time", time.Since(started)),
	)
	return model, nil
}

// ProbeLoader returns a hardware.LoadFunc that loads the configured probe
// model, for use with hardware.NewModelProber.
func (r *WorkerRegistry) ProbeLoader() hardware.LoadFunc {
	return func(ctx context.Context, profile hardware.DeviceProfile) (io.Closer, error) {
		engine, err := r.TranscriptionModel(ctx, r.cfg.Hardware.ProbeModel, profile)
		if err != nil {
			return nil, err
		}
		return engine, nil
	}
}
