package whisperx

import (
	"log/slog"
	"time"

	"textifier/internal/hardware"
)

// Config captures runtime settings for one WhisperX worker.
type Config struct {
	// Model is the WhisperX model name (e.g., "large-v3").
	Model string
	// ModelPath is the local weights directory; Model is used when empty.
	ModelPath string
	// Command and Args launch the worker.
	Command string
	Args    []string
	Profile hardware.DeviceProfile
	// VADMethod selects the voice activity detection method ("silero" or "pyannote").
	VADMethod string
	// HFToken is the Hugging Face token for pyannote VAD.
	HFToken        string
	StartupTimeout time.Duration
	Logger         *slog.Logger
}

// WhisperX configuration constants.
const (
	DefaultModel      = "large-v3"
	CUDAIndexURL      = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL      = "https://pypi.org/simple"
	ChunkSize         = 15
	VADOnset          = 0.08
	VADOffset         = 0.07
	VADMethodPyannote = "pyannote"
	VADMethodSilero   = "silero"
)

// UVXCommand is the launcher whose arguments get a PyTorch index prefix.
const UVXCommand = "uvx"
