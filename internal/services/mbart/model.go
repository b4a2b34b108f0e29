package mbart

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"textifier/internal/hardware"
	"textifier/internal/services"
	"textifier/internal/services/worker"
	"textifier/internal/translation"
)

// DefaultModel is the stock many-to-many checkpoint.
const DefaultModel = "mbart-large-50-many-to-many-mmt"

// UVXCommand is the launcher whose arguments get a PyTorch index prefix.
const (
	UVXCommand   = "uvx"
	CUDAIndexURL = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL = "https://pypi.org/simple"
)

// Config captures runtime settings for one mBART worker.
type Config struct {
	Model          string
	ModelPath      string
	Command        string
	Args           []string
	Profile        hardware.DeviceProfile
	HFToken        string
	StartupTimeout time.Duration
	Logger         *slog.Logger
}

// Model is a loaded translation model. It implements translation.Model.
type Model struct {
	cfg    Config
	client *worker.Client
}

// LoadError reports that the translation model could not be started.
type LoadError struct {
	Model string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load translation model %q: %v", e.Model, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ErrorKind implements services.ErrorClassifier.
func (e *LoadError) ErrorKind() string { return string(services.CategoryModel) }

// Start launches the worker and waits for the model to load.
func Start(ctx context.Context, cfg Config) (*Model, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	client, err := worker.Start(ctx, worker.Spec{
		Name:           "mbart",
		Command:        cfg.Command,
		Args:           BuildArgs(cfg),
		Env:            buildEnv(cfg),
		StartupTimeout: cfg.StartupTimeout,
		Logger:         cfg.Logger,
	})
	if err != nil {
		return nil, &LoadError{Model: cfg.Model, Err: err}
	}
	return &Model{cfg: cfg, client: client}, nil
}

// BuildArgs constructs the worker arguments for cfg.
func BuildArgs(cfg Config) []string {
	args := make([]string, 0, 16)
	if filepath.Base(cfg.Command) == UVXCommand {
		if cfg.Profile.IsGPU() {
			args = append(args, "--index-url", CUDAIndexURL, "--extra-index-url", PypiIndexURL)
		} else {
			args = append(args, "--index-url", PypiIndexURL)
		}
	}
	args = append(args, cfg.Args...)
	model := cfg.ModelPath
	if model == "" {
		model = cfg.Model
	}
	device := string(cfg.Profile.Backend)
	if device == "" {
		device = string(hardware.BackendCPU)
	}
	args = append(args, "--model", model, "--device", device)
	if cfg.Profile.Precision != "" {
		args = append(args, "--compute_type", string(cfg.Profile.Precision))
	}
	return args
}

func buildEnv(cfg Config) []string {
	var env []string
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		env = append(env, "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	if token := strings.TrimSpace(cfg.HFToken); token != "" {
		env = append(env, "HF_TOKEN="+token)
	}
	return env
}

type translateParams struct {
	Texts             []string `json:"texts"`
	SourceLang        string   `json:"src_lang"`
	TargetLang        string   `json:"tgt_lang"`
	NumBeams          int      `json:"num_beams"`
	MaxLength         int      `json:"max_length"`
	EarlyStopping     bool     `json:"early_stopping"`
	LengthPenalty     float64  `json:"length_penalty"`
	NoRepeatNgramSize int      `json:"no_repeat_ngram_size"`
}

type translateResult struct {
	Texts []string `json:"texts"`
}

// Translate translates one batch. The pair's model tokens select the
// languages.
func (m *Model) Translate(ctx context.Context, texts []string, req translation.Request) ([]string, error) {
	params := translateParams{
		Texts:             texts,
		SourceLang:        req.Pair.SourceToken,
		TargetLang:        req.Pair.TargetToken,
		NumBeams:          req.Options.BeamSize,
		MaxLength:         req.Options.MaxLength,
		EarlyStopping:     req.Options.EarlyStopping,
		LengthPenalty:     req.Options.LengthPenalty,
		NoRepeatNgramSize: req.Options.NoRepeatNgramSize,
	}
	var out translateResult
	if err := m.client.Call(ctx, "translate", params, &out); err != nil {
		return nil, err
	}
	return out.Texts, nil
}

// Close shuts the worker down.
func (m *Model) Close() error { return m.client.Close() }
