package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"textifier/internal/audio"
	"textifier/internal/hardware"
	"textifier/internal/inference"
	"textifier/internal/logging"
	"textifier/internal/services"
	"textifier/internal/subtitles"
)

// TranscriptionRequest describes one media file to transcribe.
type TranscriptionRequest struct {
	MediaPath string
	// OutputDir defaults to the configured output directory, then the media's directory.
	OutputDir string
	// Language is an ISO code or "auto"; empty uses the configured language.
	Language string
	// Model overrides the configured transcription model.
	Model   string
	Formats []subtitles.Format
	// Device pins the profile and skips resolution.
	Device     *hardware.DeviceProfile
	OnProgress func(Progress)
}

// SubmitTranscription starts a transcription job.
func (m *Manager) SubmitTranscription(ctx context.Context, req TranscriptionRequest) *Job {
	return m.start(ctx, KindTranscription, req.MediaPath, req.OnProgress, func(ctx context.Context, job *Job, logger *slog.Logger) Outcome {
		return m.transcribe(ctx, job, req, logger)
	})
}

func (m *Manager) transcriptionFormats(req TranscriptionRequest) ([]subtitles.Format, error) {
	if len(req.Formats) > 0 {
		return req.Formats, nil
	}
	names := []string{string(subtitles.FormatVTT)}
	if m.cfg != nil && len(m.cfg.Transcription.Formats) > 0 {
		names = m.cfg.Transcription.Formats
	}
	formats, err := subtitles.ParseFormats(names)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, StageWrite, "output formats", "", err)
	}
	return formats, nil
}

func (m *Manager) transcriptionLanguage(req TranscriptionRequest) string {
	if lang := strings.TrimSpace(req.Language); lang != "" {
		return lang
	}
	if m.cfg != nil && strings.TrimSpace(m.cfg.Transcription.Language) != "" {
		return m.cfg.Transcription.Language
	}
	return "auto"
}

func (m *Manager) transcribe(ctx context.Context, job *Job, req TranscriptionRequest, logger *slog.Logger) Outcome {
	if err := checkInput(StageExtract, req.MediaPath); err != nil {
		return failed(err)
	}
	formats, err := m.transcriptionFormats(req)
	if err != nil {
		return failed(err)
	}
	decoding := inference.DefaultDecodingConfig()
	modelName := req.Model
	if m.cfg != nil {
		decoding = inference.DecodingConfigFrom(m.cfg.Transcription)
		if modelName == "" {
			modelName = m.cfg.Transcription.Model
		}
	}
	if err := decoding.Validate(); err != nil {
		return failed(err)
	}
	if m.deps.Audio == nil || m.deps.Registry == nil {
		return failed(fmt.Errorf("transcribe: audio source and model registry are required"))
	}

	profile, err := m.resolveDevice(ctx, job, req.Device)
	if err != nil {
		return failed(err)
	}
	outcome := Outcome{Device: profile}
	done := func(o Outcome) Outcome {
		o.Device = profile
		return o
	}

	if job.Canceled() {
		return done(Outcome{Status: StatusCanceled})
	}
	job.setStage(StageExtract, "decoding audio")
	samples, err := m.deps.Audio.Extract(ctx, req.MediaPath)
	if err != nil {
		return done(failed(err))
	}
	m.deps.Metrics.AudioDecoded(audio.Duration(len(samples)))
	logger.Info("audio decoded",
		logging.String(logging.FieldEventType, "audio_decoded"),
		logging.Duration("audio_duration", audio.Duration(len(samples))),
	)
	if job.Canceled() {
		return done(Outcome{Status: StatusCanceled})
	}

	doc, progress, gaps, err := m.runInference(ctx, job, profile, modelName, decoding, samples, m.transcriptionLanguage(req), logger)
	outcome.Document = doc
	outcome.Gaps = gaps
	outcome.Cues = progress.Cues
	outcome.Silent = progress.Silent
	outcome.Skipped = progress.Skipped
	if err != nil {
		f := failed(err)
		outcome.Status, outcome.Err, outcome.Category = f.Status, f.Err, f.Category
		return outcome
	}
	if progress.Canceled {
		outcome.Status = StatusCanceled
		return outcome
	}

	job.setStage(StageWrite, "writing subtitles")
	dir := m.outputDir(req.OutputDir, req.MediaPath)
	paths, err := subtitles.WriteAll(doc, dir, stem(req.MediaPath), formats)
	outcome.Outputs = paths
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Err = services.Wrap(services.ErrExternalTool, StageWrite, "write subtitles", dir, err)
		return outcome
	}
	outcome.Status = StatusSucceeded
	return outcome
}

// runInference holds the device lock and the model only for the decode loop.
func (m *Manager) runInference(ctx context.Context, job *Job, profile hardware.DeviceProfile, modelName string,
	decoding inference.DecodingConfig, samples []float32, lang string, logger *slog.Logger,
) (*subtitles.Document, inference.Progress, []inference.Gap, error) {
	release, err := m.lockDevice(ctx, profile, logger)
	if err != nil {
		return nil, inference.Progress{}, nil, err
	}
	defer release()

	job.setStage(StageLoadModel, "loading "+modelName)
	engine, err := m.deps.Registry.TranscriptionModel(ctx, modelName, profile)
	if err != nil {
		return nil, inference.Progress{}, nil, err
	}
	defer closeModel(logger, modelName, engine)

	session := inference.NewSession(engine, profile, decoding, logger)
	stream, err := session.Transcribe(ctx, samples, lang, job.flag)
	if err != nil {
		return nil, inference.Progress{}, nil, err
	}
	job.setStage(StageTranscribe, "transcribing")
	for {
		_, ok, err := stream.Next()
		p := stream.Progress()
		job.update(func(jp *Progress) {
			jp.Cues = p.Cues
			jp.Percent = p.Percent()
		})
		if err != nil {
			return stream.Document(), p, stream.Gaps(), err
		}
		if !ok {
			break
		}
	}
	p := stream.Progress()
	m.deps.Metrics.SpanOutcomes(p.Cues, p.Silent, p.Skipped, p.Retries)
	return stream.Document(), p, stream.Gaps(), nil
}
