package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"textifier/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("HF_TOKEN", "hf-test")
	t.Setenv("TEXTIFIER_LOG_LEVEL", "")
	t.Setenv("TEXTIFIER_MODELS_DIR", "")
	t.Setenv("TEXTIFIER_FFMPEG", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "textifier", "state")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.LockDir() != filepath.Join(wantState, "locks") {
		t.Fatalf("unexpected lock dir: %q", cfg.LockDir())
	}
	if cfg.Paths.OutputDir != "" {
		t.Fatalf("expected empty output dir, got %q", cfg.Paths.OutputDir)
	}
	if got := strings.Join(cfg.Hardware.Candidates, ","); got != "cuda:float16,cuda:int8,cpu:int8" {
		t.Fatalf("unexpected candidates: %s", got)
	}
	if cfg.Transcription.BeamSize != 5 || cfg.Transcription.BestOf != 5 {
		t.Fatalf("unexpected decoding defaults: %+v", cfg.Transcription)
	}
	if cfg.Transcription.NoSpeechThreshold != 0.6 {
		t.Fatalf("unexpected no-speech threshold: %v", cfg.Transcription.NoSpeechThreshold)
	}
	if cfg.Translation.MaxBatchSize != 8 {
		t.Fatalf("unexpected batch size: %d", cfg.Translation.MaxBatchSize)
	}
	if cfg.Workers.HuggingFaceToken != "hf-test" {
		t.Fatalf("expected token from env, got %q", cfg.Workers.HuggingFaceToken)
	}
	if cfg.FFmpegBinary() != "ffmpeg" {
		t.Fatalf("unexpected ffmpeg binary: %q", cfg.FFmpegBinary())
	}
}

func TestLoadCustomConfigNormalizesValues(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("TEXTIFIER_LOG_LEVEL", "")

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
[paths]
output_dir = "~/out"

[hardware]
candidates = [" CPU:float32 "]

[transcription]
formats = [".SRT", "vtt", "srt"]

[logging]
format = "JSON"
level = "Debug"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempHome, "out") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if len(cfg.Hardware.Candidates) != 1 || cfg.Hardware.Candidates[0] != "cpu:float32" {
		t.Fatalf("unexpected candidates: %v", cfg.Hardware.Candidates)
	}
	if got := strings.Join(cfg.Transcription.Formats, ","); got != "srt,vtt" {
		t.Fatalf("unexpected formats: %s", got)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging: %+v", cfg.Logging)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[paths]\nstaging_dir = \"/tmp\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestValidateRejectsBadCandidate(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
	}{
		{"missing precision", "cuda"},
		{"unknown backend", "metal:float16"},
		{"unknown precision", "cpu:bfloat16"},
		{"half precision on cpu", "cpu:float16"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Hardware.Candidates = []string{tt.candidate}
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for %q", tt.candidate)
			}
		})
	}
}

func TestValidateRejectsUnknownFormat(t *testing.T) {
	cfg := config.Default()
	cfg.Transcription.Formats = []string{"ass"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestValidateRejectsNonURLNtfyTopic(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = "my-topic"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for ntfy topic without scheme")
	}
	cfg.Notifications.NtfyTopic = "https://ntfy.sh/my-topic"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid topic rejected: %v", err)
	}
}

func TestSampleConfigParsesIntoDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	cfg := config.Default()
	decoder := toml.NewDecoder(strings.NewReader(string(data)))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		t.Fatalf("sample config does not decode: %v", err)
	}
	if cfg.Translation.Model != config.Default().Translation.Model {
		t.Fatalf("sample translation model drifted: %q", cfg.Translation.Model)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sample config invalid: %v", err)
	}
}

func TestEnvOverridesModelsDirAndFFmpeg(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	models := t.TempDir()
	t.Setenv("TEXTIFIER_MODELS_DIR", models)
	t.Setenv("TEXTIFIER_FFMPEG", "/opt/ffmpeg/bin/ffmpeg")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.ModelsDir != models {
		t.Fatalf("models dir = %q, want %q", cfg.Paths.ModelsDir, models)
	}
	if cfg.FFmpegBinary() != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("ffmpeg = %q", cfg.FFmpegBinary())
	}
}
