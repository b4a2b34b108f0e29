package audio

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"textifier/internal/logging"
	"textifier/internal/services"
)

const (
	// SampleRate is the output sample rate in Hz.
	SampleRate = 16000
	// Channels is the output channel count.
	Channels = 1

	bytesPerSample = 2
	readChunk      = 64 * 1024
	maxStderr      = 64 * 1024
)

// DefaultBinary is used when no decoder path is configured.
const DefaultBinary = "ffmpeg"

// ExtractionError reports a decoder failure. Stderr holds the decoder's
// diagnostic output verbatim.
type ExtractionError struct {
	Path     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ExtractionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "extract audio from %s", e.Path)
	if e.ExitCode > 0 {
		fmt.Fprintf(&b, ": decoder exited with status %d", e.ExitCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if msg := strings.TrimSpace(e.Stderr); msg != "" {
		fmt.Fprintf(&b, ": %s", msg)
	}
	return b.String()
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ErrorKind reports environment for decoder failures and format for a source
// that does not exist.
func (e *ExtractionError) ErrorKind() string {
	if errors.Is(e.Err, services.ErrNotFound) {
		return string(services.CategoryFormat)
	}
	return string(services.CategoryEnvironment)
}

var errNoAudio = errors.New("decoder produced no audio")

// Extractor runs the decoder for one media file at a time.
type Extractor struct {
	binary string
	logger *slog.Logger
	// OnProgress, when set, receives the running count of PCM bytes read.
	OnProgress func(bytesRead int64)
}

// NewExtractor constructs an extractor for the given decoder binary.
func NewExtractor(binary string, logger *slog.Logger) *Extractor {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultBinary
	}
	return &Extractor{binary: binary, logger: logging.NewComponentLogger(logger, "audio")}
}

// Args returns the decoder arguments for mediaPath.
func Args(mediaPath string) []string {
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error",
		"-i", mediaPath,
		"-vn", "-sn", "-dn",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ac", fmt.Sprint(Channels),
		"-ar", fmt.Sprint(SampleRate),
		"-",
	}
}

// Extract decodes mediaPath into normalized samples. A trailing odd byte is
// dropped. Context cancellation kills the decoder and returns ctx.Err().
func (e *Extractor) Extract(ctx context.Context, mediaPath string) ([]float32, error) {
	if _, err := os.Stat(mediaPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ExtractionError{Path: mediaPath, Err: fmt.Errorf("%w: %w", services.ErrNotFound, err)}
		}
		return nil, &ExtractionError{Path: mediaPath, Err: err}
	}

	cmd := exec.CommandContext(ctx, e.binary, Args(mediaPath)...) //nolint:gosec
	stderr := &limitedBuffer{limit: maxStderr}
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &ExtractionError{Path: mediaPath, Err: err}
	}

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, &ExtractionError{
			Path: mediaPath,
			Err:  services.Wrap(services.ErrExternalTool, "audio", "start decoder", e.binary, err),
		}
	}

	samples, total, readErr := e.readPCM(stdout)
	waitErr := cmd.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if waitErr != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return nil, &ExtractionError{Path: mediaPath, ExitCode: exitCode, Stderr: stderr.String(), Err: services.ErrExternalTool}
	}
	if readErr != nil {
		return nil, &ExtractionError{Path: mediaPath, Stderr: stderr.String(), Err: readErr}
	}
	if total < bytesPerSample {
		return nil, &ExtractionError{Path: mediaPath, Stderr: stderr.String(), Err: errNoAudio}
	}

	e.logger.Debug("audio extracted",
		logging.String(logging.FieldPath, mediaPath),
		logging.Int("samples", len(samples)),
		logging.Duration("audio_duration", Duration(len(samples))),
		logging.Duration("elapsed", time.Since(started)),
	)
	return samples, nil
}

func (e *Extractor) readPCM(r io.Reader) ([]float32, int64, error) {
	reader := bufio.NewReaderSize(r, readChunk)
	buf := make([]byte, readChunk)
	samples := make([]float32, 0, SampleRate*60)
	var pending byte
	hasPending := false
	var total int64

	for {
		n, err := reader.Read(buf)
		if n > 0 {
			total += int64(n)
			chunk := buf[:n]
			if hasPending {
				samples = AppendSamples(samples, []byte{pending, chunk[0]})
				chunk = chunk[1:]
				hasPending = false
			}
			even := len(chunk) &^ 1
			samples = AppendSamples(samples, chunk[:even])
			if even < len(chunk) {
				pending, hasPending = chunk[even], true
			}
			if e.OnProgress != nil {
				e.OnProgress(total)
			}
		}
		if errors.Is(err, io.EOF) {
			return samples, total, nil
		}
		if err != nil {
			return samples, total, err
		}
	}
}

// AppendSamples converts little-endian signed 16-bit PCM to float32 and
// appends the result. len(pcm) must be even.
func AppendSamples(dst []float32, pcm []byte) []float32 {
	for i := 0; i+1 < len(pcm); i += bytesPerSample {
		v := int16(uint16(pcm[i]) | uint16(pcm[i+1])<<8)
		dst = append(dst, float32(v)/32768.0)
	}
	return dst
}

// Duration returns the playback length of n samples.
func Duration(n int) time.Duration {
	return time.Duration(n) * time.Second / SampleRate
}

// SampleIndex converts a time offset to a sample index.
func SampleIndex(d time.Duration) int {
	return int(d * SampleRate / time.Second)
}

type limitedBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if room := b.limit - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string { return b.buf.String() }
