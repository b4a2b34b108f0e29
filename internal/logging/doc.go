// Package logging assembles structured slog loggers and formatting helpers used
// across Textifier.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so workflow code can tag log
// lines with job IDs, stages, and correlation IDs. Log output goes to stderr
// (and the optional log file) so stdout stays free for command results.
package logging
