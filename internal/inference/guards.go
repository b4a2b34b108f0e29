package inference

import (
	"bytes"

	"github.com/klauspost/compress/zlib"
)

type verdict int

const (
	verdictAccept verdict = iota
	verdictSilent
	verdictRetry
)

// compressionRatio is len(text) / len(zlib(text)) at level 9. Lower levels
// emit stored blocks for short segments, which keeps the ratio under 1.
// Highly repetitive output compresses well and scores high.
func compressionRatio(text string) float64 {
	if text == "" {
		return 0
	}
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return 0
	}
	_, _ = w.Write([]byte(text))
	_ = w.Close()
	if buf.Len() == 0 {
		return 0
	}
	return float64(len(text)) / float64(buf.Len())
}

// judge applies the guards to one normalized hypothesis.
func (c DecodingConfig) judge(text string, hyp Hypothesis) (verdict, string) {
	if c.noSpeechGuard() && hyp.NoSpeechProb > c.NoSpeechThreshold {
		return verdictSilent, "no_speech"
	}
	if text == "" {
		return verdictSilent, "empty"
	}
	if c.compressionGuard() && compressionRatio(text) > c.CompressionRatioThreshold {
		return verdictRetry, "compression_ratio"
	}
	if c.logProbGuard() && hyp.AvgLogProb < c.LogProbThreshold {
		return verdictRetry, "log_prob"
	}
	return verdictAccept, ""
}
