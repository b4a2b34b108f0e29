package history

import (
	"strings"
	"time"
)

// Kind names what a job did.
type Kind string

const (
	KindTranscription Kind = "transcription"
	KindTranslation   Kind = "translation"
	KindSave          Kind = "save"
)

// Status is the lifecycle state of a recorded job.
type Status string

const (
	StatusRunning     Status = "running"
	StatusSucceeded   Status = "succeeded"
	StatusCanceled    Status = "canceled"
	StatusFailed      Status = "failed"
	StatusInterrupted Status = "interrupted"
)

// AllStatuses returns every status in display order.
func AllStatuses() []Status {
	return []Status{StatusRunning, StatusSucceeded, StatusCanceled, StatusFailed, StatusInterrupted}
}

// ParseStatus converts a user-supplied status name.
func ParseStatus(value string) (Status, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, status := range AllStatuses() {
		if string(status) == value {
			return status, true
		}
	}
	return "", false
}

// Entry is one recorded job.
type Entry struct {
	ID           string
	Kind         Kind
	Source       string
	Outputs      []string
	Device       string
	Status       Status
	ErrorKind    string
	ErrorMessage string
	Cues         int
	CreatedAt    time.Time
	FinishedAt   time.Time
}

// Duration returns how long the job ran, or zero while it is running.
func (e Entry) Duration() time.Duration {
	if e.FinishedAt.IsZero() {
		return 0
	}
	return e.FinishedAt.Sub(e.CreatedAt)
}

// Completion is what a finished job reports.
type Completion struct {
	Status       Status
	Outputs      []string
	Device       string
	ErrorKind    string
	ErrorMessage string
	Cues         int
}
