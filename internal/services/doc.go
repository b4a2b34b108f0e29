// Package services defines shared utilities consumed by the job runner and the
// model worker integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap and Classify helpers that sort
//     failures into environment, format, and model categories.
//   - The cooperative CancelFlag checked by inference and translation loops.
//
// Use these helpers when wiring new job logic so error handling and
// cancellation stay uniform across transcription, translation, and saving.
package services
