package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	ModelsDir string `toml:"models_dir"`
	StateDir  string `toml:"state_dir"`
	LogDir    string `toml:"log_dir"`
}

// FFmpeg contains the external decoder settings.
type FFmpeg struct {
	Binary string `toml:"binary"`
}

// Hardware contains device resolution settings.
type Hardware struct {
	// Candidates lists "backend:precision" pairs in priority order.
	Candidates []string `toml:"candidates"`
	// ProbeModel is the smallest model loaded to verify a candidate.
	ProbeModel         string `toml:"probe_model"`
	LockTimeoutSeconds int    `toml:"lock_timeout_seconds"`
	DisableFileLocks   bool   `toml:"disable_file_locks"`
}

// Transcription contains speech model and decoding policy settings.
type Transcription struct {
	Model                     string    `toml:"model"`
	Language                  string    `toml:"language"`
	Formats                   []string  `toml:"formats"`
	BeamSize                  int       `toml:"beam_size"`
	BestOf                    int       `toml:"best_of"`
	Patience                  float64   `toml:"patience"`
	Temperatures              []float64 `toml:"temperatures"`
	RepetitionPenalty         float64   `toml:"repetition_penalty"`
	NoRepeatNgramSize         int       `toml:"no_repeat_ngram_size"`
	CompressionRatioThreshold float64   `toml:"compression_ratio_threshold"`
	LogProbThreshold          float64   `toml:"log_prob_threshold"`
	DisableLogProbThreshold   bool      `toml:"disable_log_prob_threshold"`
	NoSpeechThreshold         float64   `toml:"no_speech_threshold"`
	ConditionOnPreviousText   bool      `toml:"condition_on_previous_text"`
	InitialPrompt             string    `toml:"initial_prompt"`
}

// Translation contains translation model and generation settings.
type Translation struct {
	Model             string  `toml:"model"`
	SourceLanguage    string  `toml:"source_language"`
	TargetLanguage    string  `toml:"target_language"`
	MaxBatchSize      int     `toml:"max_batch_size"`
	BeamSize          int     `toml:"beam_size"`
	MaxLength         int     `toml:"max_length"`
	EarlyStopping     bool    `toml:"early_stopping"`
	LengthPenalty     float64 `toml:"length_penalty"`
	NoRepeatNgramSize int     `toml:"no_repeat_ngram_size"`
}

// Workers describes how model worker processes are launched.
type Workers struct {
	TranscriptionCommand  string   `toml:"transcription_command"`
	TranscriptionArgs     []string `toml:"transcription_args"`
	TranslationCommand    string   `toml:"translation_command"`
	TranslationArgs       []string `toml:"translation_args"`
	StartupTimeoutSeconds int      `toml:"startup_timeout_seconds"`
	// HuggingFaceToken is forwarded to workers that fetch gated models.
	HuggingFaceToken string `toml:"huggingface_token"`
}

// Editing contains versioned save settings.
type Editing struct {
	Suffix       string `toml:"suffix"`
	CounterWidth int    `toml:"counter_width"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Metrics contains configuration for the Prometheus textfile export.
type Metrics struct {
	TextfilePath string `toml:"textfile_path"`
}

// Notifications contains ntfy settings for run completion notices.
type Notifications struct {
	// NtfyTopic is the full topic URL, e.g. https://ntfy.sh/my-topic. Empty disables.
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// History contains configuration for the job history database.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Config encapsulates all configuration values for Textifier.
//
// Configuration sections by subsystem:
//   - Paths: output, model, state and log directories
//   - FFmpeg: external decoder binary
//   - Hardware: device candidates, probing and per-device locks
//   - Transcription: speech model, output formats and decoding policy
//   - Translation: translation model, batching and generation knobs
//   - Workers: model worker process commands
//   - Editing: versioned save naming
//   - Logging: log format and level
//   - Metrics: Prometheus textfile export
//   - History: SQLite job history
//   - Notifications: ntfy completion notices
type Config struct {
	Paths         Paths         `toml:"paths"`
	FFmpeg        FFmpeg        `toml:"ffmpeg"`
	Hardware      Hardware      `toml:"hardware"`
	Transcription Transcription `toml:"transcription"`
	Translation   Translation   `toml:"translation"`
	Workers       Workers       `toml:"workers"`
	Editing       Editing       `toml:"editing"`
	Logging       Logging       `toml:"logging"`
	Metrics       Metrics       `toml:"metrics"`
	History       History       `toml:"history"`
	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/textifier/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("textifier.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories. The output
// directory is optional: when empty, outputs are written beside their sources.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir, c.LockDir()} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.OutputDir) != "" {
		if err := os.MkdirAll(c.Paths.OutputDir, 0o755); err != nil {
			return fmt.Errorf("create output directory %q: %w", c.Paths.OutputDir, err)
		}
	}
	return nil
}

// LockDir returns the directory holding per-device lock files.
func (c *Config) LockDir() string {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.StateDir, "locks")
}

// HistoryPath returns the SQLite job history location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// FFmpegBinary returns the decoder executable name or path.
func (c *Config) FFmpegBinary() string {
	if strings.TrimSpace(c.FFmpeg.Binary) == "" {
		return defaultFFmpegBinary
	}
	return c.FFmpeg.Binary
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
