package main

import (
	"context"
	"time"

	"textifier/internal/logging"
	"textifier/internal/notifications"
	"textifier/internal/workflow"
)

const notifyTimeout = 15 * time.Second

// summarize counts outcomes by status for a completion notice.
func summarize(kind workflow.Kind, source string, outcomes []workflow.Outcome, elapsed time.Duration) notifications.Summary {
	s := notifications.Summary{Kind: string(kind), Source: source, Duration: elapsed}
	for _, o := range outcomes {
		switch o.Status {
		case workflow.StatusSucceeded:
			s.Succeeded++
		case workflow.StatusFailed:
			s.Failed++
		case workflow.StatusCanceled:
			s.Canceled++
		case workflow.StatusSkipped:
			s.Skipped++
		}
	}
	return s
}

// notifyRun sends the completion notice when a topic is configured. A
// delivery failure is logged and never changes the command result.
func (c *commandContext) notifyRun(ctx context.Context, summary notifications.Summary) {
	cfg, err := c.ensureConfig()
	if err != nil || cfg.Notifications.NtfyTopic == "" {
		return
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := notifications.NewService(cfg).NotifyRunCompleted(ctx, summary); err != nil {
		logging.WarnWithContext(logger, "completion notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "no push notice for this run"),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}
