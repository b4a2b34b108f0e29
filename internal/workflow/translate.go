package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"textifier/internal/hardware"
	"textifier/internal/logging"
	"textifier/internal/services"
	"textifier/internal/subtitles"
	"textifier/internal/textutil"
	"textifier/internal/translation"
)

// TranslationRequest describes one document to translate. Either SourcePath
// or Document must be set.
type TranslationRequest struct {
	SourcePath string
	Document   *subtitles.Document
	// Name is the output stem when translating a Document with no SourcePath.
	Name string
	// Source defaults to the document language, then the configured source.
	Source string
	// Target defaults to the configured target language.
	Target    string
	OutputDir string
	// Format defaults to the source file's format.
	Format     subtitles.Format
	Options    *translation.Options
	Device     *hardware.DeviceProfile
	OnProgress func(Progress)
}

// SubmitTranslation starts a translation job.
func (m *Manager) SubmitTranslation(ctx context.Context, req TranslationRequest) *Job {
	source := req.SourcePath
	if source == "" {
		source = req.Name
	}
	return m.start(ctx, KindTranslation, source, req.OnProgress, func(ctx context.Context, job *Job, logger *slog.Logger) Outcome {
		return m.translate(ctx, job, req, logger)
	})
}

type translationPlan struct {
	doc    *subtitles.Document
	pair   translation.Pair
	format subtitles.Format
	dir    string
	base   string
}

// planTranslation loads the input and settles languages, format and output
// naming. The pair is checked here, before any device or model work.
func (m *Manager) planTranslation(req TranslationRequest) (translationPlan, error) {
	var plan translationPlan
	doc := req.Document
	if doc == nil {
		if err := checkInput(StageTranslate, req.SourcePath); err != nil {
			return plan, err
		}
		loaded, err := subtitles.Load(req.SourcePath)
		if err != nil {
			return plan, err
		}
		doc = loaded
	}

	source := firstNonEmpty(req.Source, doc.Language)
	target := req.Target
	if m.cfg != nil {
		source = firstNonEmpty(source, m.cfg.Translation.SourceLanguage)
		target = firstNonEmpty(target, m.cfg.Translation.TargetLanguage)
	}
	pair, err := translation.CheckPair(source, target)
	if err != nil {
		return plan, err
	}

	format := req.Format
	if format == "" && req.SourcePath != "" {
		format, err = subtitles.FormatFromPath(req.SourcePath)
		if err != nil {
			return plan, err
		}
	}
	if format == "" {
		format = subtitles.FormatVTT
	}

	name := textutil.SanitizeFileName(req.Name)
	if req.SourcePath != "" {
		name = stem(req.SourcePath)
	}
	if strings.TrimSpace(name) == "" {
		return plan, services.Wrap(services.ErrValidation, StageTranslate, "plan", "an output name is required for in-memory documents", nil)
	}
	dir := req.OutputDir
	if req.SourcePath != "" || dir == "" {
		dir = m.outputDir(req.OutputDir, req.SourcePath)
	}

	return translationPlan{
		doc:    doc,
		pair:   pair,
		format: format,
		dir:    dir,
		base:   translation.OutputBase(name, pair.Target),
	}, nil
}

func (m *Manager) translate(ctx context.Context, job *Job, req TranslationRequest, logger *slog.Logger) Outcome {
	plan, err := m.planTranslation(req)
	if err != nil {
		return failed(err)
	}
	if m.deps.Registry == nil {
		return failed(fmt.Errorf("translate: model registry is required"))
	}
	logger = logger.With(logging.String("pair", plan.pair.String()))
	if plan.doc.Len() == 0 {
		logging.WarnWithContext(logger, "document has no cues", "empty_document",
			logging.String(logging.FieldImpact, "an empty translation is written"),
		)
	}

	profile, err := m.resolveDevice(ctx, job, req.Device)
	if err != nil {
		return failed(err)
	}
	outcome := Outcome{Device: profile}
	if job.Canceled() {
		outcome.Status = StatusCanceled
		return outcome
	}

	result, err := m.runTranslation(ctx, job, profile, plan, req.Options, logger)
	outcome.Document = result.Document
	if result.Document != nil {
		outcome.Cues = result.Document.Len()
	}
	if err != nil {
		f := failed(err)
		outcome.Status, outcome.Err, outcome.Category = f.Status, f.Err, f.Category
		return outcome
	}
	m.deps.Metrics.TranslationDone(result.Batches, result.Fallbacks)
	if result.Canceled {
		outcome.Status = StatusCanceled
		return outcome
	}

	job.setStage(StageWrite, "writing translation")
	paths, err := subtitles.WriteAll(result.Document, plan.dir, plan.base, []subtitles.Format{plan.format})
	outcome.Outputs = paths
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Err = services.Wrap(services.ErrExternalTool, StageWrite, "write translation", filepath.Join(plan.dir, plan.base), err)
		return outcome
	}
	outcome.Status = StatusSucceeded
	return outcome
}

func (m *Manager) runTranslation(ctx context.Context, job *Job, profile hardware.DeviceProfile, plan translationPlan,
	options *translation.Options, logger *slog.Logger,
) (translation.Result, error) {
	release, err := m.lockDevice(ctx, profile, logger)
	if err != nil {
		return translation.Result{}, err
	}
	defer release()

	job.setStage(StageLoadModel, "loading translation model")
	model, err := m.deps.Registry.TranslationModel(ctx, plan.pair.Source, plan.pair.Target, profile)
	if err != nil {
		return translation.Result{}, err
	}
	defer closeModel(logger, plan.pair.String(), model)

	cfg := translation.Config{}
	if m.cfg != nil {
		cfg.MaxBatchSize = m.cfg.Translation.MaxBatchSize
		cfg.Options = translation.OptionsFrom(m.cfg.Translation)
	}
	pipeline := translation.NewPipeline(model, cfg, logger)

	job.setStage(StageTranslate, "translating")
	return pipeline.Translate(ctx, translation.Job{
		Document: plan.doc,
		Source:   plan.pair.Source,
		Target:   plan.pair.Target,
		Options:  options,
		Cancel:   job.flag,
		OnBatch: func(b translation.BatchProgress) {
			job.update(func(p *Progress) {
				p.Cues = b.CuesDone
				if b.CuesTotal > 0 {
					p.Percent = float64(b.CuesDone) * 100 / float64(b.CuesTotal)
				}
				p.Message = fmt.Sprintf("batch %d/%d", b.Batch, b.Batches)
			})
		},
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
