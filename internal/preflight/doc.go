// Package preflight provides readiness checks for the directories, binaries,
// models and devices Textifier depends on.
//
// The CLI "textifier check" command runs RunAll and renders every Result; the
// transcribe and translate commands run the same checks first and refuse to
// start when a required one fails, so a missing model or decoder is reported
// before any audio is decoded.
package preflight
