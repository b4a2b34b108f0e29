package whisperx

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"textifier/internal/audio"
	"textifier/internal/inference"
	"textifier/internal/services/worker"
)

// Engine is a loaded WhisperX model. It implements inference.Engine.
type Engine struct {
	cfg    Config
	client *worker.Client
}

// Start launches the worker and waits for the model to load. Failures are
// reported as *inference.ModelLoadError.
func Start(ctx context.Context, cfg Config) (*Engine, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	client, err := worker.Start(ctx, worker.Spec{
		Name:           "whisperx",
		Command:        cfg.Command,
		Args:           BuildArgs(cfg),
		Env:            buildEnv(cfg),
		StartupTimeout: cfg.StartupTimeout,
		Logger:         cfg.Logger,
	})
	if err != nil {
		return nil, &inference.ModelLoadError{Model: cfg.Model, Profile: cfg.Profile, Err: err}
	}
	return &Engine{cfg: cfg, client: client}, nil
}

// BuildArgs constructs the worker arguments for cfg.
func BuildArgs(cfg Config) []string {
	args := make([]string, 0, 24)

	if filepath.Base(cfg.Command) == UVXCommand {
		if cfg.Profile.IsGPU() {
			args = append(args,
				"--index-url", CUDAIndexURL,
				"--extra-index-url", PypiIndexURL,
			)
		} else {
			args = append(args, "--index-url", PypiIndexURL)
		}
	}
	args = append(args, cfg.Args...)

	model := cfg.ModelPath
	if model == "" {
		model = cfg.Model
	}
	if model == "" {
		model = DefaultModel
	}
	args = append(args,
		"--model", model,
		"--device", string(cfg.Profile.Backend),
		"--compute_type", string(cfg.Profile.Precision),
		"--chunk_size", fmt.Sprint(ChunkSize),
		"--vad_onset", fmt.Sprint(VADOnset),
		"--vad_offset", fmt.Sprint(VADOffset),
	)

	vadMethod := cfg.VADMethod
	if vadMethod == "" {
		vadMethod = VADMethodSilero
	}
	args = append(args, "--vad_method", vadMethod)
	return args
}

func buildEnv(cfg Config) []string {
	var env []string
	// Torch 2.6 changed torch.load default to weights_only=true, breaking WhisperX/pyannote.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		env = append(env, "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	if token := strings.TrimSpace(cfg.HFToken); token != "" {
		env = append(env, "HF_TOKEN="+token)
	}
	return env
}

type audioPayload struct {
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
	Samples    int    `json:"samples"`
	Data       string `json:"data"`
}

func newAudioPayload(samples []float32) audioPayload {
	return audioPayload{
		Encoding:   AudioEncoding,
		SampleRate: audio.SampleRate,
		Samples:    len(samples),
		Data:       base64.StdEncoding.EncodeToString(EncodeAudio(samples)),
	}
}

type spansResult struct {
	Spans []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"spans"`
}

// DetectSpans runs voice activity detection over the whole buffer.
func (e *Engine) DetectSpans(ctx context.Context, samples []float32) ([]inference.Span, error) {
	var out spansResult
	params := map[string]any{"audio": newAudioPayload(samples)}
	if err := e.client.Call(ctx, "detect_spans", params, &out); err != nil {
		return nil, err
	}
	spans := make([]inference.Span, 0, len(out.Spans))
	for _, s := range out.Spans {
		spans = append(spans, inference.Span{Start: seconds(s.Start), End: seconds(s.End)})
	}
	return spans, nil
}

type decodeParams struct {
	Audio             audioPayload `json:"audio"`
	Language          string       `json:"language,omitempty"`
	Temperature       float64      `json:"temperature"`
	BeamSize          int          `json:"beam_size"`
	BestOf            int          `json:"best_of"`
	Patience          float64      `json:"patience"`
	RepetitionPenalty float64      `json:"repetition_penalty,omitempty"`
	NoRepeatNgramSize int          `json:"no_repeat_ngram_size,omitempty"`
	InitialPrompt     string       `json:"initial_prompt,omitempty"`
}

type decodeResult struct {
	Text         string  `json:"text"`
	AvgLogProb   float64 `json:"avg_logprob"`
	NoSpeechProb float64 `json:"no_speech_prob"`
	Language     string  `json:"language"`
}

// Decode transcribes one window.
func (e *Engine) Decode(ctx context.Context, window inference.Window, opts inference.DecodeOptions) (inference.Hypothesis, error) {
	params := decodeParams{
		Audio:             newAudioPayload(window.Samples),
		Language:          opts.Language,
		Temperature:       opts.Temperature,
		BeamSize:          opts.BeamSize,
		BestOf:            opts.BestOf,
		Patience:          opts.Patience,
		RepetitionPenalty: opts.RepetitionPenalty,
		NoRepeatNgramSize: opts.NoRepeatNgramSize,
		InitialPrompt:     opts.Prompt,
	}
	var out decodeResult
	if err := e.client.Call(ctx, "decode", params, &out); err != nil {
		return inference.Hypothesis{}, err
	}
	return inference.Hypothesis{
		Text:         out.Text,
		AvgLogProb:   out.AvgLogProb,
		NoSpeechProb: out.NoSpeechProb,
		Language:     out.Language,
	}, nil
}

// Close shuts the worker down.
func (e *Engine) Close() error {
	return e.client.Close()
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
