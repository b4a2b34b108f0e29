package translation

import (
	"context"
	"fmt"
	"strings"

	"textifier/internal/config"
	"textifier/internal/language"
	"textifier/internal/services"
)

// Options are the generation knobs passed to the model with every batch.
type Options struct {
	BeamSize          int
	MaxLength         int
	EarlyStopping     bool
	LengthPenalty     float64
	NoRepeatNgramSize int
}

// DefaultOptions returns the stock generation settings.
func DefaultOptions() Options {
	return Options{
		BeamSize:          5,
		MaxLength:         512,
		EarlyStopping:     true,
		LengthPenalty:     1.0,
		NoRepeatNgramSize: 3,
	}
}

// OptionsFrom maps the translation config section.
func OptionsFrom(cfg config.Translation) Options {
	return Options{
		BeamSize:          cfg.BeamSize,
		MaxLength:         cfg.MaxLength,
		EarlyStopping:     cfg.EarlyStopping,
		LengthPenalty:     cfg.LengthPenalty,
		NoRepeatNgramSize: cfg.NoRepeatNgramSize,
	}
}

// Request is what a model receives alongside the texts of one batch.
type Request struct {
	Pair    Pair
	Options Options
}

// Model is an opaque translation model handle owned by a single job.
type Model interface {
	Translate(ctx context.Context, texts []string, req Request) ([]string, error)
	Close() error
}

// Pair is a validated source/target combination.
type Pair struct {
	// Source and Target are ISO 639-1 codes.
	Source string
	Target string
	// SourceToken and TargetToken are the model's language tokens, e.g. "en_XX".
	SourceToken string
	TargetToken string
}

func (p Pair) String() string { return p.Source + "->" + p.Target }

// UnsupportedPairError reports a language pair the model cannot translate.
type UnsupportedPairError struct {
	Source string
	Target string
	Reason string
}

func (e *UnsupportedPairError) Error() string {
	return fmt.Sprintf("unsupported language pair %s -> %s: %s", e.Source, e.Target, e.Reason)
}

// ErrorKind implements services.ErrorClassifier.
func (e *UnsupportedPairError) ErrorKind() string { return string(services.CategoryModel) }

// CheckPair validates source and target against the model's language table.
func CheckPair(source, target string) (Pair, error) {
	srcToken, ok := language.MBARTCode(source)
	if !ok {
		return Pair{}, &UnsupportedPairError{Source: source, Target: target, Reason: fmt.Sprintf("source language %q is not supported", source)}
	}
	tgtToken, ok := language.MBARTCode(target)
	if !ok {
		return Pair{}, &UnsupportedPairError{Source: source, Target: target, Reason: fmt.Sprintf("target language %q is not supported", target)}
	}
	if srcToken == tgtToken {
		return Pair{}, &UnsupportedPairError{Source: source, Target: target, Reason: "source and target are the same language"}
	}
	return Pair{
		Source:      language.ToISO2(source),
		Target:      language.ToISO2(target),
		SourceToken: srcToken,
		TargetToken: tgtToken,
	}, nil
}

// OutputBase returns the file stem used for a translation of stem.
func OutputBase(stem, target string) string {
	code := language.ToISO2(target)
	if code == "" {
		code = strings.ToLower(strings.TrimSpace(target))
	}
	return stem + "_" + code
}
