package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"textifier/internal/config"
	"textifier/internal/history"
	"textifier/internal/logging"
	"textifier/internal/services"
)

// Manager starts jobs and records their outcomes.
type Manager struct {
	cfg    *config.Config
	deps   Dependencies
	logger *slog.Logger

	wg sync.WaitGroup

	mu     sync.Mutex
	active map[string]*Job
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, deps Dependencies, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		deps:   deps,
		logger: logging.NewComponentLogger(logger, "workflow"),
		active: make(map[string]*Job),
	}
}

// Active returns the jobs that have not finished yet.
func (m *Manager) Active() []*Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	jobs := make([]*Job, 0, len(m.active))
	for _, job := range m.active {
		jobs = append(jobs, job)
	}
	return jobs
}

// CancelAll cancels every active job.
func (m *Manager) CancelAll() {
	for _, job := range m.Active() {
		job.Cancel()
	}
}

// Wait blocks until every submitted job has finished.
func (m *Manager) Wait() { m.wg.Wait() }

type runFunc func(ctx context.Context, job *Job, logger *slog.Logger) Outcome

// start registers a job, records it in history and runs fn on a goroutine.
func (m *Manager) start(ctx context.Context, kind Kind, source string, onProgress func(Progress), fn runFunc) *Job {
	job := newJob(uuid.NewString(), kind, source, onProgress)

	m.mu.Lock()
	m.active[job.ID] = job
	m.mu.Unlock()
	m.wg.Add(1)

	jobCtx := services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(jobCtx, m.logger).With(
		logging.String("kind", string(kind)),
		logging.String(logging.FieldPath, source),
	)
	m.recordStart(jobCtx, job, logger)

	go func() {
		defer m.wg.Done()
		started := time.Now()
		m.deps.Metrics.JobStarted()
		logger.Info("job started", logging.String(logging.FieldEventType, "job_started"))

		outcome := fn(jobCtx, job, logger)
		outcome.JobID = job.ID
		outcome.Kind = kind
		outcome.Source = source
		outcome.Duration = time.Since(started)
		if outcome.Err != nil && outcome.Category == "" {
			outcome.Category = services.Classify(outcome.Err)
		}

		m.deps.Metrics.JobFinished(string(kind), string(outcome.Status), outcome.Duration)
		m.recordFinish(jobCtx, job, outcome, logger)
		m.logOutcome(logger, outcome)

		m.mu.Lock()
		delete(m.active, job.ID)
		m.mu.Unlock()
		job.finish(outcome)
	}()
	return job
}

func (m *Manager) recordStart(ctx context.Context, job *Job, logger *slog.Logger) {
	if m.deps.History == nil {
		return
	}
	if _, err := m.deps.History.Begin(context.WithoutCancel(ctx), job.ID, job.Kind, job.Source, ""); err != nil {
		logging.WarnWithContext(logger, "job history unavailable", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "job will not appear in history"),
			logging.String(logging.FieldErrorHint, "check the state directory is writable"),
		)
	}
}

func (m *Manager) recordFinish(ctx context.Context, job *Job, outcome Outcome, logger *slog.Logger) {
	if m.deps.History == nil {
		return
	}
	completion := history.Completion{
		Status:  historyStatus(outcome.Status),
		Outputs: outcome.Outputs,
		Cues:    outcome.Cues,
	}
	if outcome.Device != (zeroProfile) {
		completion.Device = outcome.Device.String()
	}
	if outcome.Err != nil {
		completion.ErrorKind = string(outcome.Category)
		completion.ErrorMessage = outcome.Err.Error()
	}
	if err := m.deps.History.Finish(context.WithoutCancel(ctx), job.ID, completion); err != nil {
		logging.WarnWithContext(logger, "job history not updated", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "history shows the job as running"),
		)
	}
}

func (m *Manager) logOutcome(logger *slog.Logger, o Outcome) {
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "job_finished"),
		logging.String("status", string(o.Status)),
		logging.Duration("elapsed", o.Duration),
		logging.Int("outputs", len(o.Outputs)),
	}
	if o.Device != zeroProfile {
		attrs = append(attrs, logging.String(logging.FieldDevice, o.Device.String()))
	}
	switch o.Status {
	case StatusFailed:
		logging.ErrorWithContext(logger, "job failed", "job_failed",
			append(attrs,
				logging.Error(o.Err),
				logging.String("error_kind", string(o.Category)),
				logging.String(logging.FieldErrorHint, errorHint(o.Category)),
			)...)
	default:
		logger.Info("job finished", logging.Args(attrs...)...)
	}
}

func errorHint(category services.Category) string {
	switch category {
	case services.CategoryEnvironment:
		return "run textifier check to verify binaries, drivers and devices"
	case services.CategoryFormat:
		return "inspect the input file; other items are unaffected"
	case services.CategoryModel:
		return "verify the model is installed and supports the requested languages"
	default:
		return "check logs for details"
	}
}

func historyStatus(status Status) history.Status {
	switch status {
	case StatusSucceeded:
		return history.StatusSucceeded
	case StatusCanceled:
		return history.StatusCanceled
	default:
		return history.StatusFailed
	}
}

// failed builds a failed outcome, folding cancellation into the canceled
// status.
func failed(err error) Outcome {
	if errors.Is(err, context.Canceled) {
		return Outcome{Status: StatusCanceled}
	}
	return Outcome{Status: StatusFailed, Err: err, Category: services.Classify(err)}
}

// checkInput verifies path names a regular, readable file.
func checkInput(stage, path string) error {
	if strings.TrimSpace(path) == "" {
		return services.Wrap(services.ErrValidation, stage, "check input", "no input path", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return services.Wrap(services.ErrNotFound, stage, "check input", fmt.Sprintf("%s does not exist", path), err)
		}
		return services.Wrap(services.ErrExternalTool, stage, "check input", "stat input", err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrValidation, stage, "check input", fmt.Sprintf("%s is a directory", path), nil)
	}
	return nil
}

// outputDir picks the directory for a job's outputs: the request's, then the
// configured one, then the source's own directory.
func (m *Manager) outputDir(requested, source string) string {
	if dir := strings.TrimSpace(requested); dir != "" {
		return dir
	}
	if m.cfg != nil && strings.TrimSpace(m.cfg.Paths.OutputDir) != "" {
		return m.cfg.Paths.OutputDir
	}
	return filepath.Dir(source)
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
