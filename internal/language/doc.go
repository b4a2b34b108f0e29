// Package language provides language code normalization and the language
// tables of the speech and translation models.
//
// All conversions (ISO 639-1, ISO 639-2, BCP 47 tags, display names, mBART-50
// tokens) are consolidated here so the CLI, the workflow and the model workers
// agree on what a language code means.
package language
