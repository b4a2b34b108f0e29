package workflow

import (
	"context"
	"strings"
	"sync"
	"time"

	"textifier/internal/audio"
	"textifier/internal/hardware"
	"textifier/internal/inference"
	"textifier/internal/translation"
)

var cpu = hardware.DeviceProfile{Backend: hardware.BackendCPU, Precision: hardware.PrecisionInt8}

type fakeResolver struct {
	mu      sync.Mutex
	profile hardware.DeviceProfile
	err     error
	calls   int
}

func (f *fakeResolver) Resolve(context.Context) (hardware.DeviceProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.profile, f.err
}

func (f *fakeResolver) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeAudio struct {
	seconds int
	err     error
	fail    map[string]error
}

func (f *fakeAudio) Extract(_ context.Context, path string) ([]float32, error) {
	if err, ok := f.fail[path]; ok {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return make([]float32, audio.SampleRate*f.seconds), nil
}

// fakeEngine yields one span per second. Spans listed in silent report a high
// no-speech probability.
type fakeEngine struct {
	spans  int
	silent map[int]bool
	// gate, when set, blocks the first Decode until it is closed.
	gate    chan struct{}
	started chan struct{}
	once    sync.Once
	onClose func()
}

func (e *fakeEngine) DetectSpans(context.Context, []float32) ([]inference.Span, error) {
	spans := make([]inference.Span, e.spans)
	for i := range spans {
		spans[i] = inference.Span{Start: time.Duration(i) * time.Second, End: time.Duration(i+1) * time.Second}
	}
	return spans, nil
}

func (e *fakeEngine) Decode(_ context.Context, w inference.Window, _ inference.DecodeOptions) (inference.Hypothesis, error) {
	if e.gate != nil {
		e.once.Do(func() {
			close(e.started)
			<-e.gate
		})
	}
	i := int(w.Span.Start / time.Second)
	if e.silent[i] {
		return inference.Hypothesis{Text: "", NoSpeechProb: 0.95}, nil
	}
	return inference.Hypothesis{Text: "line " + string(rune('a'+i)), AvgLogProb: -0.1, NoSpeechProb: 0.01, Language: "en"}, nil
}

func (e *fakeEngine) Close() error {
	if e.onClose != nil {
		e.onClose()
	}
	return nil
}

type fakeMT struct {
	dict    map[string]string
	onClose func()
}

func (m *fakeMT) Translate(_ context.Context, texts []string, _ translation.Request) ([]string, error) {
	out := make([]string, len(texts))
	for i, text := range texts {
		if v, ok := m.dict[text]; ok {
			out[i] = v
		} else {
			out[i] = strings.ToUpper(text)
		}
	}
	return out, nil
}

func (m *fakeMT) Close() error {
	if m.onClose != nil {
		m.onClose()
	}
	return nil
}

// fakeRegistry hands out fake models and tracks how many are open at once.
type fakeRegistry struct {
	mu        sync.Mutex
	newEngine func() *fakeEngine
	dict      map[string]string
	asrErr    error
	mtErr     error
	asrLoads  int
	mtLoads   int
	open      int
	maxOpen   int
	closed    int
	delay     time.Duration
	lastModel string
}

func (r *fakeRegistry) opened() {
	r.open++
	if r.open > r.maxOpen {
		r.maxOpen = r.open
	}
}

func (r *fakeRegistry) release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open--
	r.closed++
}

func (r *fakeRegistry) TranscriptionModel(_ context.Context, name string, _ hardware.DeviceProfile) (inference.Engine, error) {
	r.mu.Lock()
	r.asrLoads++
	r.lastModel = name
	if r.asrErr != nil {
		r.mu.Unlock()
		return nil, r.asrErr
	}
	r.opened()
	delay := r.delay
	r.mu.Unlock()
	time.Sleep(delay)

	engine := &fakeEngine{spans: 3}
	if r.newEngine != nil {
		engine = r.newEngine()
	}
	engine.onClose = r.release
	return engine, nil
}

func (r *fakeRegistry) TranslationModel(_ context.Context, _, _ string, _ hardware.DeviceProfile) (translation.Model, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mtLoads++
	if r.mtErr != nil {
		return nil, r.mtErr
	}
	r.opened()
	return &fakeMT{dict: r.dict, onClose: r.release}, nil
}

type registryStats struct {
	asrLoads, mtLoads     int
	open, maxOpen, closed int
	lastModel             string
}

func (r *fakeRegistry) snapshot() registryStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return registryStats{asrLoads: r.asrLoads, mtLoads: r.mtLoads, open: r.open, maxOpen: r.maxOpen, closed: r.closed, lastModel: r.lastModel}
}
