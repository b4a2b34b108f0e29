// Package subtitles holds the canonical in-memory subtitle model and the
// codecs that move it to and from disk.
//
// A Document is an ordered list of timed cues plus an optional language tag.
// Documents are values: readers never mutate them, and every edit operation
// returns a fresh copy. Codecs exist for WebVTT, SubRip, plain text and CSV;
// VTT, SRT and CSV round-trip a well-formed document exactly.
package subtitles
