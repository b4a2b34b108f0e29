package workflow

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"textifier/internal/config"
	"textifier/internal/hardware"
	"textifier/internal/history"
	"textifier/internal/logging"
	"textifier/internal/metrics"
	"textifier/internal/models"
	"textifier/internal/services"
	"textifier/internal/subtitles"
	"textifier/internal/testsupport"
	"textifier/internal/versions"
)

type harness struct {
	cfg      *config.Config
	manager  *Manager
	registry *fakeRegistry
	resolver *fakeResolver
	audio    *fakeAudio
	store    *history.Store
	metrics  *metrics.Metrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithOutputDir())
	h := &harness{
		cfg:      cfg,
		registry: &fakeRegistry{},
		resolver: &fakeResolver{profile: cpu},
		audio:    &fakeAudio{seconds: 3},
		store:    testsupport.MustOpenHistory(t, cfg),
		metrics:  metrics.New(),
	}
	h.manager = NewManager(cfg, Dependencies{
		Registry: h.registry,
		Resolver: h.resolver,
		Audio:    h.audio,
		Locks:    hardware.NewLocks("", 0),
		Versions: versions.NewManager(versions.Options{}),
		History:  h.store,
		Metrics:  h.metrics,
	}, logging.NewNop())
	return h
}

func writeMedia(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	testsupport.WriteFile(t, path, 1024)
	return path
}

func writeSubtitles(t *testing.T, path string, doc *subtitles.Document) {
	t.Helper()
	format, err := subtitles.FormatFromPath(path)
	if err != nil {
		t.Fatal(err)
	}
	data, err := subtitles.Encode(doc, format)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func helloWorld() *subtitles.Document {
	return &subtitles.Document{Language: "en", Cues: []subtitles.Cue{
		subtitles.NewCue(0, 2*time.Second, "Hello"),
		subtitles.NewCue(2*time.Second, 4*time.Second, "World"),
	}}
}

func waitOutcome(t *testing.T, job *Job) Outcome {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	outcome, err := job.WaitContext(ctx)
	if err != nil {
		t.Fatalf("job %s did not finish: %v", job.ID, err)
	}
	return outcome
}

func TestTranscriptionWritesEveryFormat(t *testing.T) {
	h := newHarness(t)
	h.registry.newEngine = func() *fakeEngine { return &fakeEngine{spans: 3, silent: map[int]bool{1: true}} }
	media := writeMedia(t, t.TempDir(), "talk.mp4")

	var mu sync.Mutex
	var stages []string
	job := h.manager.SubmitTranscription(context.Background(), TranscriptionRequest{
		MediaPath: media,
		OnProgress: func(p Progress) {
			mu.Lock()
			stages = append(stages, p.Stage)
			mu.Unlock()
		},
	})
	outcome := waitOutcome(t, job)

	if !outcome.OK() {
		t.Fatalf("status = %s, err = %v", outcome.Status, outcome.Err)
	}
	if outcome.Cues != 2 || outcome.Silent != 1 {
		t.Fatalf("cues = %d silent = %d, want 2 and 1", outcome.Cues, outcome.Silent)
	}
	if outcome.Device != cpu {
		t.Fatalf("device = %s", outcome.Device)
	}
	if len(outcome.Outputs) != 4 {
		t.Fatalf("outputs = %v, want 4 files", outcome.Outputs)
	}
	for _, path := range outcome.Outputs {
		if filepath.Dir(path) != h.cfg.Paths.OutputDir {
			t.Fatalf("output %s not in %s", path, h.cfg.Paths.OutputDir)
		}
	}
	doc, err := subtitles.Load(filepath.Join(h.cfg.Paths.OutputDir, "talk.vtt"))
	if err != nil {
		t.Fatalf("load vtt: %v", err)
	}
	if got := doc.Texts(); len(got) != 2 || got[0] != "line a" || got[1] != "line c" {
		t.Fatalf("texts = %v", got)
	}

	stats := h.registry.snapshot()
	if stats.open != 0 || stats.closed != 1 {
		t.Fatalf("model handles open=%d closed=%d", stats.open, stats.closed)
	}
	if stats.lastModel != h.cfg.Transcription.Model {
		t.Fatalf("model = %q, want configured %q", stats.lastModel, h.cfg.Transcription.Model)
	}

	entry, err := h.store.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("history get: %v", err)
	}
	if entry.Status != history.StatusSucceeded || entry.Cues != 2 || entry.Device != "cpu:int8" {
		t.Fatalf("history entry = %+v", entry)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(stages) == 0 || stages[0] != StageDevice {
		t.Fatalf("stages = %v", stages)
	}
	if p := job.Progress(); p.Stage != StageDone || p.Percent != 100 {
		t.Fatalf("final progress = %+v", p)
	}
}

func TestTranscriptionCancelKeepsPartialDocumentAndWritesNothing(t *testing.T) {
	h := newHarness(t)
	engine := &fakeEngine{spans: 3, gate: make(chan struct{}), started: make(chan struct{})}
	h.registry.newEngine = func() *fakeEngine { return engine }
	media := writeMedia(t, t.TempDir(), "talk.mp4")

	job := h.manager.SubmitTranscription(context.Background(), TranscriptionRequest{MediaPath: media})
	select {
	case <-engine.started:
	case <-time.After(5 * time.Second):
		t.Fatal("decode never started")
	}
	job.Cancel()
	close(engine.gate)
	outcome := waitOutcome(t, job)

	if outcome.Status != StatusCanceled || outcome.Err != nil {
		t.Fatalf("status = %s err = %v", outcome.Status, outcome.Err)
	}
	if outcome.Document == nil || outcome.Document.Len() != 1 {
		t.Fatalf("partial document = %+v, want the one in-flight cue", outcome.Document)
	}
	if len(outcome.Outputs) != 0 {
		t.Fatalf("canceled job wrote %v", outcome.Outputs)
	}
	if entries, _ := os.ReadDir(h.cfg.Paths.OutputDir); len(entries) != 0 {
		t.Fatalf("output dir has %d entries", len(entries))
	}
	if stats := h.registry.snapshot(); stats.open != 0 {
		t.Fatalf("model left open after cancel")
	}
	entry, err := h.store.Get(context.Background(), job.ID)
	if err != nil || entry.Status != history.StatusCanceled {
		t.Fatalf("history entry = %+v, err = %v", entry, err)
	}
}

func TestTranscriptionFailures(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(t *testing.T, h *harness) string
		category services.Category
	}{
		{
			name:     "missing media",
			setup:    func(_ *testing.T, h *harness) string { return filepath.Join(h.cfg.Paths.StateDir, "missing.mp4") },
			category: services.CategoryFormat,
		},
		{
			name: "no usable device",
			setup: func(t *testing.T, h *harness) string {
				h.resolver.err = &hardware.NoUsableDeviceError{}
				return writeMedia(t, h.cfg.Paths.StateDir, "a.mp4")
			},
			category: services.CategoryEnvironment,
		},
		{
			name: "model unavailable",
			setup: func(t *testing.T, h *harness) string {
				h.registry.asrErr = &models.UnavailableError{Kind: models.KindTranscription, Name: "large-v3"}
				return writeMedia(t, h.cfg.Paths.StateDir, "a.mp4")
			},
			category: services.CategoryModel,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			job := h.manager.SubmitTranscription(context.Background(), TranscriptionRequest{MediaPath: tt.setup(t, h)})
			outcome := waitOutcome(t, job)
			if outcome.Status != StatusFailed || outcome.Category != tt.category {
				t.Fatalf("status = %s category = %s err = %v", outcome.Status, outcome.Category, outcome.Err)
			}
			entry, err := h.store.Get(context.Background(), job.ID)
			if err != nil {
				t.Fatalf("history get: %v", err)
			}
			if entry.Status != history.StatusFailed || entry.ErrorKind != string(tt.category) {
				t.Fatalf("history entry = %+v", entry)
			}
		})
	}
}

func TestJobsOnOneDeviceDoNotOverlap(t *testing.T) {
	h := newHarness(t)
	h.registry.delay = 20 * time.Millisecond
	dir := t.TempDir()

	var jobs []*Job
	for _, name := range []string{"a.mp4", "b.mp4", "c.mp4"} {
		jobs = append(jobs, h.manager.SubmitTranscription(context.Background(), TranscriptionRequest{MediaPath: writeMedia(t, dir, name)}))
	}
	for _, job := range jobs {
		if outcome := waitOutcome(t, job); !outcome.OK() {
			t.Fatalf("%s: %v", job.Source, outcome.Err)
		}
	}
	if stats := h.registry.snapshot(); stats.maxOpen != 1 {
		t.Fatalf("max concurrent models = %d, want 1", stats.maxOpen)
	}
	h.manager.Wait()
	if len(h.manager.Active()) != 0 {
		t.Fatalf("active jobs remain")
	}
}

type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}

func TestDeviceResolutionNeverOverlapsRunningJob(t *testing.T) {
	h := newHarness(t)
	h.registry.delay = 20 * time.Millisecond
	// A probe loads a model too; count it against the same registry.
	prober := hardware.ProberFunc(func(context.Context, hardware.DeviceProfile) (io.Closer, error) {
		h.registry.mu.Lock()
		h.registry.opened()
		h.registry.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		return closerFunc(h.registry.release), nil
	})
	locks := hardware.NewLocks("", 0)
	resolver := hardware.NewResolver(prober, hardware.Options{Candidates: []hardware.DeviceProfile{cpu}, Locks: locks})
	h.manager = NewManager(h.cfg, Dependencies{
		Registry: h.registry,
		Resolver: resolver,
		Audio:    h.audio,
		Locks:    locks,
		Versions: versions.NewManager(versions.Options{}),
		History:  h.store,
		Metrics:  h.metrics,
	}, logging.NewNop())

	dir := t.TempDir()
	var jobs []*Job
	for _, name := range []string{"a.mp4", "b.mp4", "c.mp4"} {
		jobs = append(jobs, h.manager.SubmitTranscription(context.Background(), TranscriptionRequest{MediaPath: writeMedia(t, dir, name)}))
	}
	for _, job := range jobs {
		outcome := waitOutcome(t, job)
		if !outcome.OK() {
			t.Fatalf("%s: %v", job.Source, outcome.Err)
		}
		if outcome.Device != cpu {
			t.Fatalf("%s ran on %s", job.Source, outcome.Device)
		}
	}
	stats := h.registry.snapshot()
	if stats.maxOpen != 1 {
		t.Fatalf("max concurrent models including probes = %d, want 1", stats.maxOpen)
	}
	if stats.closed != 6 {
		t.Fatalf("closed = %d, want 3 probes and 3 jobs", stats.closed)
	}
}

func TestTranslationWritesTargetSuffix(t *testing.T) {
	h := newHarness(t)
	h.registry.dict = map[string]string{"Hello": "Bonjour", "World": "Monde"}
	src := filepath.Join(t.TempDir(), "talk.vtt")
	writeSubtitles(t, src, helloWorld())

	job := h.manager.SubmitTranslation(context.Background(), TranslationRequest{SourcePath: src, Target: "fr"})
	outcome := waitOutcome(t, job)
	if !outcome.OK() {
		t.Fatalf("status = %s err = %v", outcome.Status, outcome.Err)
	}
	want := filepath.Join(h.cfg.Paths.OutputDir, "talk_fr.vtt")
	if len(outcome.Outputs) != 1 || outcome.Outputs[0] != want {
		t.Fatalf("outputs = %v, want %s", outcome.Outputs, want)
	}
	doc, err := subtitles.Load(want)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Language != "fr" || doc.Cues[0].Text != "Bonjour" || doc.Cues[1].Text != "Monde" {
		t.Fatalf("translated = %+v", doc)
	}
	source := helloWorld()
	for i, cue := range doc.Cues {
		if cue.Start != source.Cues[i].Start || cue.End != source.Cues[i].End {
			t.Fatalf("cue %d timing changed", i)
		}
	}
	original, err := subtitles.Load(src)
	if err != nil || original.Cues[0].Text != "Hello" {
		t.Fatalf("source modified: %+v %v", original, err)
	}
}

func TestTranslationUnsupportedPairStopsBeforeDevice(t *testing.T) {
	h := newHarness(t)
	job := h.manager.SubmitTranslation(context.Background(), TranslationRequest{Document: helloWorld(), Name: "talk", Target: "tlh"})
	outcome := waitOutcome(t, job)
	if outcome.Status != StatusFailed || outcome.Category != services.CategoryModel {
		t.Fatalf("status = %s category = %s", outcome.Status, outcome.Category)
	}
	if h.resolver.Calls() != 0 || h.registry.snapshot().mtLoads != 0 {
		t.Fatalf("device or model touched for an unsupported pair")
	}
}

func TestTranslationOfMalformedFileIsFormatFailure(t *testing.T) {
	h := newHarness(t)
	src := filepath.Join(t.TempDir(), "broken.srt")
	if err := os.WriteFile(src, []byte("1\nnot a timing line\nHello\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	outcome := waitOutcome(t, h.manager.SubmitTranslation(context.Background(), TranslationRequest{SourcePath: src}))
	if outcome.Category != services.CategoryFormat {
		t.Fatalf("category = %s err = %v", outcome.Category, outcome.Err)
	}
	var perr *subtitles.ParseError
	if !errors.As(outcome.Err, &perr) || perr.Path != src {
		t.Fatalf("err = %v, want ParseError for %s", outcome.Err, src)
	}
}

func TestSaveCreatesNumberedVersions(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	original := filepath.Join(dir, "talk.vtt")
	writeSubtitles(t, original, helloWorld())
	before, err := os.ReadFile(original)
	if err != nil {
		t.Fatal(err)
	}
	edited, err := helloWorld().ReplaceText(0, "Hi")
	if err != nil {
		t.Fatal(err)
	}

	var paths []string
	for range 2 {
		outcome := waitOutcome(t, h.manager.SubmitSave(context.Background(), SaveRequest{Original: original, Document: edited}))
		if !outcome.OK() {
			t.Fatalf("save: %v", outcome.Err)
		}
		paths = append(paths, outcome.Outputs...)
	}
	want := []string{filepath.Join(dir, "talk_edit01.vtt"), filepath.Join(dir, "talk_edit02.vtt")}
	if len(paths) != 2 || paths[0] != want[0] || paths[1] != want[1] {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	after, err := os.ReadFile(original)
	if err != nil || string(after) != string(before) {
		t.Fatalf("original changed")
	}
}

func TestSaveRejectsInvalidDocument(t *testing.T) {
	h := newHarness(t)
	bad := &subtitles.Document{Cues: []subtitles.Cue{{Start: time.Second, End: time.Second, Text: "x"}}}
	outcome := waitOutcome(t, h.manager.SubmitSave(context.Background(), SaveRequest{Original: filepath.Join(t.TempDir(), "a.srt"), Document: bad}))
	if outcome.Status != StatusFailed {
		t.Fatalf("status = %s", outcome.Status)
	}
}

func TestMetricsRecordJobs(t *testing.T) {
	h := newHarness(t)
	media := writeMedia(t, t.TempDir(), "talk.mp4")
	waitOutcome(t, h.manager.SubmitTranscription(context.Background(), TranscriptionRequest{MediaPath: media}))

	samples, err := h.metrics.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, s := range samples {
		if s.Name == "textifier_jobs_total" && s.Labels["kind"] == "transcription" && s.Labels["status"] == "succeeded" && s.Value == 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("jobs_total sample missing: %+v", samples)
	}
}
