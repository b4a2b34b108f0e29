package inference

import (
	"context"
	"fmt"
	"time"

	"textifier/internal/hardware"
	"textifier/internal/services"
)

// Span is a region of the audio buffer the engine believes holds speech.
// Offsets are relative to the first sample.
type Span struct {
	Start time.Duration
	End   time.Duration
}

// Duration returns End - Start.
func (s Span) Duration() time.Duration { return s.End - s.Start }

// Window is the audio handed to one Decode call.
type Window struct {
	Span    Span
	Samples []float32
}

// DecodeOptions carries the per-attempt decoding parameters.
type DecodeOptions struct {
	// Language is an ISO 639-1 code; empty lets the engine detect it.
	Language          string
	Temperature       float64
	BeamSize          int
	BestOf            int
	Patience          float64
	RepetitionPenalty float64
	NoRepeatNgramSize int
	Prompt            string
}

// Hypothesis is the engine's best transcription of one window.
type Hypothesis struct {
	Text         string
	AvgLogProb   float64
	NoSpeechProb float64
	// Language is the detected language, when the engine reports one.
	Language string
}

// Engine is an opaque speech model handle owned by a single job.
type Engine interface {
	DetectSpans(ctx context.Context, samples []float32) ([]Span, error)
	Decode(ctx context.Context, window Window, opts DecodeOptions) (Hypothesis, error)
	Close() error
}

// ModelLoadError reports that a speech model could not be started or loaded
// on the requested device.
type ModelLoadError struct {
	Model   string
	Profile hardware.DeviceProfile
	Err     error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("load model %q on %s: %v", e.Model, e.Profile, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// ErrorKind implements services.ErrorClassifier.
func (e *ModelLoadError) ErrorKind() string { return string(services.CategoryModel) }
