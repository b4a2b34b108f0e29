// Package workflow runs transcription, translation and save jobs.
//
// The Manager accepts requests, starts each job on its own goroutine and
// hands back a *Job that callers poll (Progress), cancel (Cancel) or wait on
// (Done, Wait). Every job ends with exactly one Outcome. A job resolves its
// device once, holds that device's lock only while a model is loaded, and owns
// the model handle it opens.
//
// Cancellation is an Outcome status, never an error. Canceled translations
// are not written; a canceled transcription keeps its partial document on the
// Outcome but writes nothing.
//
// TranscribeAll and TranslateAll process a directory one item at a time and
// return one Outcome per item. Malformed input fails only its own item; an
// environment or model failure stops the batch and marks the rest skipped.
package workflow
