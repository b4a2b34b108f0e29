// Package audio normalizes media into the sample stream speech models expect:
// mono, 16 kHz, float32 samples in [-1, 1].
//
// Decoding is delegated to an external ffmpeg process that writes raw signed
// 16-bit little-endian PCM to stdout; the package streams that pipe and
// converts samples as they arrive. The source file is only ever read by the
// decoder.
package audio
