package workflow

import (
	"context"
	"errors"
	"log/slog"

	"textifier/internal/services"
	"textifier/internal/subtitles"
)

// SaveRequest stores an edited document as a new version beside Original.
type SaveRequest struct {
	Original   string
	Document   *subtitles.Document
	OnProgress func(Progress)
}

// SubmitSave starts a versioned save. The original file is never modified.
func (m *Manager) SubmitSave(ctx context.Context, req SaveRequest) *Job {
	return m.start(ctx, KindSave, req.Original, req.OnProgress, func(ctx context.Context, job *Job, logger *slog.Logger) Outcome {
		return m.save(job, req)
	})
}

func (m *Manager) save(job *Job, req SaveRequest) Outcome {
	if m.deps.Versions == nil {
		return failed(errors.New("save: no version manager configured"))
	}
	if req.Document == nil {
		return failed(services.Wrap(services.ErrValidation, StageWrite, "save", "no document to save", nil))
	}
	if err := req.Document.Validate(); err != nil {
		return failed(err)
	}
	job.setStage(StageWrite, "saving version")
	path, err := m.deps.Versions.Save(req.Original, req.Document)
	if err != nil {
		return failed(err)
	}
	return Outcome{Status: StatusSucceeded, Outputs: []string{path}, Document: req.Document, Cues: req.Document.Len()}
}
