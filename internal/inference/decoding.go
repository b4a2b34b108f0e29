package inference

import (
	"errors"
	"fmt"
	"math"

	"textifier/internal/config"
	"textifier/internal/services"
)

// DecodingConfig is the decoding policy for one session.
type DecodingConfig struct {
	BeamSize          int
	BestOf            int
	Patience          float64
	Temperatures      []float64
	RepetitionPenalty float64
	NoRepeatNgramSize int
	// CompressionRatioThreshold <= 0 disables the repetition guard.
	CompressionRatioThreshold float64
	// LogProbThreshold of math.Inf(-1) disables the confidence guard.
	LogProbThreshold float64
	// NoSpeechThreshold <= 0 or >= 1 disables the silence guard.
	NoSpeechThreshold       float64
	ConditionOnPreviousText bool
	InitialPrompt           string
}

// DefaultDecodingConfig returns the stock decoding policy.
func DefaultDecodingConfig() DecodingConfig {
	return DecodingConfig{
		BeamSize:                  5,
		BestOf:                    5,
		Patience:                  1.0,
		Temperatures:              []float64{0.0, 0.2, 0.4, 0.6, 0.8, 1.0},
		RepetitionPenalty:         1.0,
		CompressionRatioThreshold: 2.4,
		LogProbThreshold:          -1.0,
		NoSpeechThreshold:         0.6,
		ConditionOnPreviousText:   true,
	}
}

// DecodingConfigFrom maps the transcription config section.
func DecodingConfigFrom(cfg config.Transcription) DecodingConfig {
	dc := DecodingConfig{
		BeamSize:                  cfg.BeamSize,
		BestOf:                    cfg.BestOf,
		Patience:                  cfg.Patience,
		Temperatures:              append([]float64(nil), cfg.Temperatures...),
		RepetitionPenalty:         cfg.RepetitionPenalty,
		NoRepeatNgramSize:         cfg.NoRepeatNgramSize,
		CompressionRatioThreshold: cfg.CompressionRatioThreshold,
		LogProbThreshold:          cfg.LogProbThreshold,
		NoSpeechThreshold:         cfg.NoSpeechThreshold,
		ConditionOnPreviousText:   cfg.ConditionOnPreviousText,
		InitialPrompt:             cfg.InitialPrompt,
	}
	if cfg.DisableLogProbThreshold {
		dc.LogProbThreshold = math.Inf(-1)
	}
	return dc
}

// Validate checks the policy before a session starts.
func (c DecodingConfig) Validate() error {
	var errs []error
	if c.BeamSize < 1 {
		errs = append(errs, fmt.Errorf("beam size must be positive, got %d", c.BeamSize))
	}
	if c.BestOf < 1 {
		errs = append(errs, fmt.Errorf("best_of must be positive, got %d", c.BestOf))
	}
	if c.Patience <= 0 {
		errs = append(errs, fmt.Errorf("patience must be positive, got %g", c.Patience))
	}
	if len(c.Temperatures) == 0 {
		errs = append(errs, errors.New("temperature ladder is empty"))
	}
	for _, t := range c.Temperatures {
		if t < 0 || math.IsNaN(t) {
			errs = append(errs, fmt.Errorf("temperature %g must be >= 0", t))
		}
	}
	if math.IsNaN(c.LogProbThreshold) {
		errs = append(errs, errors.New("log prob threshold is NaN"))
	}
	if len(errs) == 0 {
		return nil
	}
	return services.Wrap(services.ErrConfiguration, "inference", "validate decoding", "", errors.Join(errs...))
}

func (c DecodingConfig) compressionGuard() bool { return c.CompressionRatioThreshold > 0 }

func (c DecodingConfig) logProbGuard() bool { return !math.IsInf(c.LogProbThreshold, -1) }

func (c DecodingConfig) noSpeechGuard() bool {
	return c.NoSpeechThreshold > 0 && c.NoSpeechThreshold < 1
}
