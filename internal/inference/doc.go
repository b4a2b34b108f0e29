// Package inference drives a speech model over normalized audio and yields
// accepted cues one at a time.
//
// A Session binds an Engine to the DeviceProfile resolved for a job. Transcribe
// asks the engine for speech spans and returns a Stream; each call to
// Stream.Next decodes spans until one passes the quality guards. Hypotheses that
// repeat themselves (high compression ratio) or that the model is unsure of
// (low average log probability) are retried at the next temperature of the
// ladder. Spans the model judges silent are skipped without retry, and spans
// that exhaust the ladder are recorded as gaps rather than cues.
//
// Cancellation is cooperative: the job's CancelFlag and the stream context are
// consulted before every span, never during one.
package inference
