// Package translation re-renders a subtitle document in another language.
//
// The Pipeline sends cue texts to a Model in batches of at most MaxBatchSize
// and maps the outputs back one to one, so timing and cue boundaries are kept
// and the result does not depend on the batch size. Language pairs are checked
// before any model call.
package translation
