// Package logs reads the textifier log file for `textifier logs`.
//
// Tail returns the last N lines (optionally only those tagged with one job)
// and follow mode polls for appended lines until the caller's context ends.
// Memory stays bounded by the requested line count.
package logs
