// Package notifications delivers run completion notices to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers send unconditionally. Delivery failures are returned to the caller,
// which logs them; a notification never changes a job outcome.
package notifications
