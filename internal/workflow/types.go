package workflow

import (
	"context"
	"sync"
	"time"

	"textifier/internal/hardware"
	"textifier/internal/history"
	"textifier/internal/inference"
	"textifier/internal/services"
	"textifier/internal/subtitles"
)

// Kind names what a job does.
type Kind = history.Kind

// Job kinds.
const (
	KindTranscription = history.KindTranscription
	KindTranslation   = history.KindTranslation
	KindSave          = history.KindSave
)

// Status is the final state of a job.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusCanceled  Status = "canceled"
	StatusFailed    Status = "failed"
	// StatusSkipped marks batch items never started because an earlier item
	// hit an environment or model failure.
	StatusSkipped Status = "skipped"
)

// Stage names used in Progress and logs.
const (
	StageQueued     = "queued"
	StageDevice     = "device"
	StageExtract    = "extract"
	StageLoadModel  = "load_model"
	StageTranscribe = "transcribe"
	StageTranslate  = "translate"
	StageWrite      = "write"
	StageDone       = "done"
)

// Progress is a job snapshot.
type Progress struct {
	Stage   string
	Percent float64
	Message string
	Cues    int
	// Device is set once the job has resolved its profile.
	Device string
}

// Outcome is the single result of a job.
type Outcome struct {
	JobID    string
	Kind     Kind
	Source   string
	Status   Status
	Outputs  []string
	Device   hardware.DeviceProfile
	Document *subtitles.Document
	Cues     int
	Silent   int
	Skipped  int
	Gaps     []inference.Gap
	Err      error
	Category services.Category
	Duration time.Duration
}

// OK reports whether the job succeeded.
func (o Outcome) OK() bool { return o.Status == StatusSucceeded }

// Job is a running or finished unit of work.
type Job struct {
	ID     string
	Kind   Kind
	Source string

	flag       *services.CancelFlag
	done       chan struct{}
	onProgress func(Progress)

	mu       sync.Mutex
	progress Progress
	outcome  Outcome
}

func newJob(id string, kind Kind, source string, onProgress func(Progress)) *Job {
	return &Job{
		ID:         id,
		Kind:       kind,
		Source:     source,
		flag:       services.NewCancelFlag(),
		done:       make(chan struct{}),
		onProgress: onProgress,
		progress:   Progress{Stage: StageQueued},
	}
}

// Progress returns the latest snapshot.
func (j *Job) Progress() Progress {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.progress
}

// Cancel asks the job to stop before its next unit of work.
func (j *Job) Cancel() { j.flag.Cancel() }

// Canceled reports whether Cancel was called.
func (j *Job) Canceled() bool { return j.flag.Canceled() }

// Done is closed when the outcome is available.
func (j *Job) Done() <-chan struct{} { return j.done }

// Wait blocks until the job ends and returns its outcome.
func (j *Job) Wait() Outcome {
	<-j.done
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.outcome
}

// WaitContext is Wait bounded by ctx. It does not cancel the job.
func (j *Job) WaitContext(ctx context.Context) (Outcome, error) {
	select {
	case <-j.done:
		return j.Wait(), nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

func (j *Job) update(fn func(*Progress)) {
	j.mu.Lock()
	fn(&j.progress)
	snapshot := j.progress
	j.mu.Unlock()
	if j.onProgress != nil {
		j.onProgress(snapshot)
	}
}

func (j *Job) setStage(stage, message string) {
	j.update(func(p *Progress) {
		p.Stage = stage
		p.Message = message
	})
}

func (j *Job) finish(outcome Outcome) {
	j.mu.Lock()
	j.outcome = outcome
	j.progress.Stage = StageDone
	j.progress.Message = string(outcome.Status)
	if outcome.Status == StatusSucceeded {
		j.progress.Percent = 100
	}
	j.mu.Unlock()
	close(j.done)
}

var zeroProfile hardware.DeviceProfile
