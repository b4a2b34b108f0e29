package translation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"textifier/internal/logging"
	"textifier/internal/services"
	"textifier/internal/subtitles"
)

// DefaultMaxBatchSize is used when the pipeline is built with a non-positive size.
const DefaultMaxBatchSize = 8

// Config configures a Pipeline.
type Config struct {
	MaxBatchSize int
	Options      Options
}

// Pipeline translates documents with one model.
type Pipeline struct {
	model    Model
	maxBatch int
	options  Options
	logger   *slog.Logger
}

// NewPipeline builds a pipeline around model.
func NewPipeline(model Model, cfg Config, logger *slog.Logger) *Pipeline {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = DefaultMaxBatchSize
	}
	if cfg.Options == (Options{}) {
		cfg.Options = DefaultOptions()
	}
	return &Pipeline{
		model:    model,
		maxBatch: cfg.MaxBatchSize,
		options:  cfg.Options,
		logger:   logging.NewComponentLogger(logger, "translation"),
	}
}

// BatchProgress is reported after every completed batch.
type BatchProgress struct {
	Batch     int
	Batches   int
	CuesDone  int
	CuesTotal int
}

// Job is one document translation.
type Job struct {
	Document *subtitles.Document
	Source   string
	Target   string
	// Options overrides the pipeline's generation settings when set.
	Options *Options
	Cancel  *services.CancelFlag
	OnBatch func(BatchProgress)
}

// Result holds the translated document. When Canceled is set the document
// holds only the translated prefix.
type Result struct {
	Document *subtitles.Document
	Batches  int
	Canceled bool
	// Fallbacks counts cues whose blank model output was replaced by the source text.
	Fallbacks int
}

// Translate runs the job. The pair is checked before the model is called.
func (p *Pipeline) Translate(ctx context.Context, job Job) (Result, error) {
	pair, err := CheckPair(job.Source, job.Target)
	if err != nil {
		return Result{}, err
	}
	if p.model == nil {
		return Result{}, errors.New("translation pipeline has no model")
	}
	opts := p.options
	if job.Options != nil {
		opts = *job.Options
	}
	req := Request{Pair: pair, Options: opts}

	src := job.Document.Clone()
	out := &subtitles.Document{Language: pair.Target, Cues: make([]subtitles.Cue, 0, len(src.Cues))}
	total := len(src.Cues)
	batches := (total + p.maxBatch - 1) / p.maxBatch
	result := Result{Document: out}

	for b := 0; b < batches; b++ {
		if job.Cancel.Canceled() || ctx.Err() != nil {
			result.Canceled = true
			p.logger.Info("translation canceled",
				logging.String(logging.FieldEventType, "canceled"),
				logging.Int("cues_translated", len(out.Cues)),
				logging.Int("cues_total", total),
			)
			return result, nil
		}
		start := b * p.maxBatch
		end := min(start+p.maxBatch, total)
		texts := make([]string, 0, end-start)
		for _, cue := range src.Cues[start:end] {
			texts = append(texts, cue.Text)
		}

		translated, err := p.model.Translate(context.WithoutCancel(ctx), texts, req)
		if err != nil {
			return result, fmt.Errorf("translate batch %d/%d (%s): %w", b+1, batches, pair, err)
		}
		if len(translated) != len(texts) {
			return result, fmt.Errorf("translate batch %d/%d (%s): model returned %d texts for %d cues",
				b+1, batches, pair, len(translated), len(texts))
		}
		for i, cue := range src.Cues[start:end] {
			text := subtitles.NormalizeText(translated[i])
			if text == "" {
				result.Fallbacks++
				logging.WarnWithContext(p.logger, "model returned blank translation", "blank_translation",
					logging.String(logging.FieldErrorHint, "check the source text of this cue"),
					logging.String(logging.FieldImpact, "source text kept for this cue"),
					logging.Int("cue", start+i+1),
				)
				text = cue.Text
			}
			cue.Text = text
			out.Cues = append(out.Cues, cue)
		}
		result.Batches++
		if job.OnBatch != nil {
			job.OnBatch(BatchProgress{Batch: b + 1, Batches: batches, CuesDone: end, CuesTotal: total})
		}
	}

	p.logger.Info("translation complete",
		logging.String(logging.FieldEventType, "translated"),
		logging.String("pair", pair.String()),
		logging.Int("cues", total),
		logging.Int("batches", result.Batches),
	)
	return result, nil
}
