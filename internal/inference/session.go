package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"textifier/internal/audio"
	"textifier/internal/hardware"
	"textifier/internal/language"
	"textifier/internal/logging"
	"textifier/internal/services"
	"textifier/internal/subtitles"
)

const (
	// promptResetTemperature: a cue accepted above this temperature is not
	// carried into the next prompt.
	promptResetTemperature = 0.5
	maxPromptRunes         = 896
)

// Session is a speech engine bound to one device profile.
type Session struct {
	engine  Engine
	profile hardware.DeviceProfile
	cfg     DecodingConfig
	logger  *slog.Logger
}

// NewSession binds engine to profile. The session does not own the engine;
// the caller closes it when the job ends.
func NewSession(engine Engine, profile hardware.DeviceProfile, cfg DecodingConfig, logger *slog.Logger) *Session {
	return &Session{
		engine:  engine,
		profile: profile,
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "inference"),
	}
}

// Profile returns the device the session runs on.
func (s *Session) Profile() hardware.DeviceProfile { return s.profile }

// Transcribe detects speech spans in samples and returns a stream that decodes
// them lazily. languageHint may be "auto" or empty for detection.
func (s *Session) Transcribe(ctx context.Context, samples []float32, languageHint string, cancel *services.CancelFlag) (*Stream, error) {
	if s.engine == nil {
		return nil, errors.New("inference session has no engine")
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	hint := ""
	if !language.IsAuto(languageHint) {
		hint = language.ToISO2(languageHint)
		if hint == "" {
			return nil, services.Wrap(services.ErrValidation, "inference", "language hint", languageHint, nil)
		}
	}

	stream := &Stream{
		ctx:     ctx,
		session: s,
		samples: samples,
		flag:    cancel,
		local:   services.NewCancelFlag(),
		hint:    hint,
		doc:     &subtitles.Document{Language: hint},
		sampler: logging.NewProgressSampler(10),
		prompt:  strings.TrimSpace(s.cfg.InitialPrompt),
	}
	if len(samples) == 0 {
		stream.done = true
		return stream, nil
	}

	spans, err := s.engine.DetectSpans(context.WithoutCancel(ctx), samples)
	if err != nil {
		return nil, fmt.Errorf("detect speech spans: %w", err)
	}
	limit := audio.Duration(len(samples))
	stream.spans = make([]Span, 0, len(spans))
	for _, span := range spans {
		if span.Start < 0 {
			span.Start = 0
		}
		if span.End > limit {
			span.End = limit
		}
		stream.spans = append(stream.spans, span)
	}
	sort.SliceStable(stream.spans, func(i, j int) bool { return stream.spans[i].Start < stream.spans[j].Start })
	stream.progress.SpansTotal = len(stream.spans)
	s.logger.Info("speech spans detected",
		logging.String(logging.FieldEventType, "spans_detected"),
		logging.Int("spans", len(stream.spans)),
		logging.Duration("audio_duration", limit),
		logging.String(logging.FieldDevice, s.profile.String()),
	)
	return stream, nil
}

// Progress is a point-in-time view of a stream.
type Progress struct {
	SpansTotal int
	SpansDone  int
	Cues       int
	// Silent counts spans judged to hold no speech.
	Silent int
	// Skipped counts spans that exhausted the temperature ladder.
	Skipped  int
	Retries  int
	Canceled bool
}

// Percent returns the share of spans processed, 0-100.
func (p Progress) Percent() float64 {
	if p.SpansTotal == 0 {
		return 100
	}
	return float64(p.SpansDone) * 100 / float64(p.SpansTotal)
}

// Gap is a span for which no cue could be produced.
type Gap struct {
	Span   Span
	Reason string
}

// Stream is a pull iterator over accepted cues. Next is not safe for
// concurrent use; Progress, Gaps and Cancel may be called from any goroutine.
type Stream struct {
	ctx     context.Context
	session *Session
	samples []float32
	spans   []Span
	flag    *services.CancelFlag
	local   *services.CancelFlag
	hint    string
	sampler *logging.ProgressSampler

	prompt   string
	previous []string

	mu       sync.Mutex
	next     int
	done     bool
	err      error
	doc      *subtitles.Document
	gaps     []Gap
	progress Progress
}

// Next decodes until a cue is accepted. It returns ok=false when the spans are
// exhausted or the stream was canceled; err is set only for fatal engine
// failures.
func (st *Stream) Next() (subtitles.Cue, bool, error) {
	for {
		span, ok, err := st.take()
		if !ok {
			return subtitles.Cue{}, false, err
		}
		cue, accepted, err := st.decodeSpan(span)
		st.mu.Lock()
		st.progress.SpansDone++
		if err != nil {
			st.done, st.err = true, err
			st.mu.Unlock()
			return subtitles.Cue{}, false, err
		}
		if accepted {
			st.doc.Cues = append(st.doc.Cues, cue)
			st.progress.Cues++
		}
		snapshot := st.progress
		st.mu.Unlock()
		st.logProgress(snapshot)
		if accepted {
			return cue, true, nil
		}
	}
}

// take returns the next span unless the stream is finished or canceled.
func (st *Stream) take() (Span, bool, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.done {
		return Span{}, false, st.err
	}
	if st.flag.Canceled() || st.local.Canceled() || st.ctx.Err() != nil {
		st.done = true
		st.progress.Canceled = true
		return Span{}, false, nil
	}
	if st.next >= len(st.spans) {
		st.done = true
		return Span{}, false, nil
	}
	span := st.spans[st.next]
	st.next++
	return span, true, nil
}

func (st *Stream) decodeSpan(span Span) (subtitles.Cue, bool, error) {
	cfg := st.session.cfg
	start := audio.SampleIndex(span.Start)
	end := audio.SampleIndex(span.End)
	if end <= start || span.End.Truncate(time.Millisecond) <= span.Start.Truncate(time.Millisecond) {
		st.addGap(span, "empty_span")
		return subtitles.Cue{}, false, nil
	}
	window := Window{Span: span, Samples: st.samples[start:end]}
	opts := DecodeOptions{
		Language:          st.hint,
		BeamSize:          cfg.BeamSize,
		BestOf:            cfg.BestOf,
		Patience:          cfg.Patience,
		RepetitionPenalty: cfg.RepetitionPenalty,
		NoRepeatNgramSize: cfg.NoRepeatNgramSize,
		Prompt:            st.currentPrompt(),
	}

	lastReason := ""
	for attempt, temperature := range cfg.Temperatures {
		opts.Temperature = temperature
		// A unit in flight is never interrupted by cancellation.
		hyp, err := st.session.engine.Decode(context.WithoutCancel(st.ctx), window, opts)
		if err != nil {
			return subtitles.Cue{}, false, fmt.Errorf("decode span %s-%s: %w",
				subtitles.FormatTimestamp(span.Start, '.'), subtitles.FormatTimestamp(span.End, '.'), err)
		}
		text := subtitles.NormalizeText(hyp.Text)
		v, reason := cfg.judge(text, hyp)
		switch v {
		case verdictSilent:
			st.mu.Lock()
			st.progress.Silent++
			st.mu.Unlock()
			return subtitles.Cue{}, false, nil
		case verdictRetry:
			lastReason = reason
			if attempt < len(cfg.Temperatures)-1 {
				st.mu.Lock()
				st.progress.Retries++
				st.mu.Unlock()
			}
			st.session.logger.Debug("hypothesis rejected",
				logging.String("reason", reason),
				logging.Float64("temperature", temperature),
				logging.Duration("span_start", span.Start),
			)
			continue
		}
		if hyp.Language != "" {
			st.mu.Lock()
			if st.doc.Language == "" {
				st.doc.Language = language.ToISO2(hyp.Language)
			}
			st.mu.Unlock()
		}
		st.remember(text, temperature)
		return subtitles.NewCue(span.Start, span.End, text), true, nil
	}

	st.addGap(span, lastReason)
	logging.WarnWithContext(st.session.logger, "span skipped after exhausting temperature ladder", "span_skipped",
		logging.String(logging.FieldErrorHint, "lower compression_ratio_threshold or log_prob_threshold to accept more output"),
		logging.String(logging.FieldImpact, "no cue is produced for this span"),
		logging.String("reason", lastReason),
		logging.Duration("span_start", span.Start),
		logging.Duration("span_end", span.End),
	)
	return subtitles.Cue{}, false, nil
}

func (st *Stream) addGap(span Span, reason string) {
	st.mu.Lock()
	st.gaps = append(st.gaps, Gap{Span: span, Reason: reason})
	st.progress.Skipped++
	st.mu.Unlock()
}

func (st *Stream) currentPrompt() string {
	if !st.session.cfg.ConditionOnPreviousText || len(st.previous) == 0 {
		return st.prompt
	}
	parts := append([]string{}, st.previous...)
	if st.prompt != "" {
		parts = append([]string{st.prompt}, parts...)
	}
	joined := []rune(strings.Join(parts, " "))
	if len(joined) > maxPromptRunes {
		joined = joined[len(joined)-maxPromptRunes:]
	}
	return string(joined)
}

func (st *Stream) remember(text string, temperature float64) {
	if !st.session.cfg.ConditionOnPreviousText {
		return
	}
	if temperature > promptResetTemperature {
		st.previous = st.previous[:0]
		return
	}
	st.previous = append(st.previous, strings.ReplaceAll(text, "\n", " "))
}

func (st *Stream) logProgress(p Progress) {
	if !st.sampler.ShouldLog(p.Percent(), "transcribe") {
		return
	}
	st.session.logger.Info("transcription progress",
		logging.String(logging.FieldEventType, "progress"),
		logging.Float64("percent", p.Percent()),
		logging.Int("cues", p.Cues),
		logging.Int("silent", p.Silent),
		logging.Int("skipped", p.Skipped),
	)
}

// Cancel stops the stream before its next span.
func (st *Stream) Cancel() { st.local.Cancel() }

// Document returns a copy of the cues yielded so far.
func (st *Stream) Document() *subtitles.Document {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.doc.Clone()
}

// Progress returns a snapshot of the stream counters.
func (st *Stream) Progress() Progress {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.progress
}

// Gaps returns the spans that produced no cue after exhausting the ladder.
func (st *Stream) Gaps() []Gap {
	st.mu.Lock()
	defer st.mu.Unlock()
	return append([]Gap(nil), st.gaps...)
}

// Drain reads the stream to the end and returns the final document.
func (st *Stream) Drain() (*subtitles.Document, error) {
	for {
		_, ok, err := st.Next()
		if err != nil {
			return st.Document(), err
		}
		if !ok {
			return st.Document(), nil
		}
	}
}
