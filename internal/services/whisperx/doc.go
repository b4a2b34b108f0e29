// Package whisperx runs WhisperX speech models in a worker process and adapts
// them to inference.Engine.
//
// The worker is launched through uvx by default, with the PyTorch index chosen
// from the device profile. Audio crosses the pipe as zstd-compressed
// little-endian float32 samples.
package whisperx
