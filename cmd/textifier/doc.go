// Package main hosts the Textifier CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into workflow jobs:
// transcription of media files or folders, translation of subtitle files,
// versioned saves of edited subtitles, device and dependency checks, job
// history maintenance and configuration scaffolding. It centralizes
// configuration resolution, logging setup and dependency wiring in
// commandContext so subcommands can focus on user experience.
//
// Keep this package lean: add functionality to the internal packages first,
// then surface it through dedicated commands or flags here.
package main
