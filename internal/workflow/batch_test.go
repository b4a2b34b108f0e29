package workflow

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"textifier/internal/models"
	"textifier/internal/services"
	"textifier/internal/translation"
)

func TestTranscribeAllResolvesOnceAndSortsItems(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	for _, name := range []string{"b.mkv", "a.mp3", "notes.txt", "c.wav"} {
		writeMedia(t, dir, name)
	}

	outcomes, err := h.manager.TranscribeAll(context.Background(), dir, TranscriptionRequest{})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a.mp3", "b.mkv", "c.wav"}
	if len(outcomes) != len(want) {
		t.Fatalf("outcomes = %d, want %d", len(outcomes), len(want))
	}
	for i, o := range outcomes {
		if filepath.Base(o.Source) != want[i] || !o.OK() {
			t.Fatalf("outcome %d = %s %s %v", i, o.Source, o.Status, o.Err)
		}
	}
	if calls := h.resolver.Calls(); calls != 1 {
		t.Fatalf("resolver calls = %d, want 1", calls)
	}
}

func TestTranscribeAllContinuesAfterFormatFailure(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	a, b, c := writeMedia(t, dir, "a.mp4"), writeMedia(t, dir, "b.mp4"), writeMedia(t, dir, "c.mp4")
	h.audio.fail = map[string]error{b: services.Wrap(services.ErrValidation, StageExtract, "decode", "no audio stream", nil)}

	outcomes, err := h.manager.TranscribeAll(context.Background(), dir, TranscriptionRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("outcomes = %d", len(outcomes))
	}
	if outcomes[0].Source != a || !outcomes[0].OK() {
		t.Fatalf("a: %+v", outcomes[0])
	}
	if outcomes[1].Status != StatusFailed || outcomes[1].Category != services.CategoryFormat {
		t.Fatalf("b: %s %s", outcomes[1].Status, outcomes[1].Category)
	}
	if outcomes[2].Source != c || !outcomes[2].OK() {
		t.Fatalf("c: %+v", outcomes[2])
	}
}

func TestTranscribeAllStopsOnModelFailure(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	for _, name := range []string{"a.mp4", "b.mp4", "c.mp4"} {
		writeMedia(t, dir, name)
	}
	h.registry.asrErr = &models.UnavailableError{Kind: models.KindTranscription, Name: "large-v3"}

	outcomes, err := h.manager.TranscribeAll(context.Background(), dir, TranscriptionRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if outcomes[0].Status != StatusFailed || outcomes[0].Category != services.CategoryModel {
		t.Fatalf("first = %s %s", outcomes[0].Status, outcomes[0].Category)
	}
	for _, o := range outcomes[1:] {
		if o.Status != StatusSkipped {
			t.Fatalf("%s status = %s, want skipped", o.Source, o.Status)
		}
	}
	if loads := h.registry.snapshot().asrLoads; loads != 1 {
		t.Fatalf("model loads = %d, want 1", loads)
	}
}

func TestTranscribeAllCanceledContext(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	writeMedia(t, dir, "a.mp4")
	writeMedia(t, dir, "b.mp4")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes, err := h.manager.TranscribeAll(ctx, dir, TranscriptionRequest{Device: &cpu})
	if err != nil {
		t.Fatal(err)
	}
	for _, o := range outcomes {
		if o.Status != StatusCanceled {
			t.Fatalf("%s status = %s", o.Source, o.Status)
		}
	}
}

func TestTranslateAllSkipsPreviousOutputs(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	for _, name := range []string{"a.vtt", "b.srt", "a_fr.vtt"} {
		writeSubtitles(t, filepath.Join(dir, name), helloWorld())
	}
	if err := os.WriteFile(filepath.Join(dir, "c.csv"), []byte("start,end,text\nbad,00:00:01.000,x\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	outcomes, err := h.manager.TranslateAll(context.Background(), dir, TranslationRequest{Source: "en", Target: "fr"})
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("outcomes = %d, want a.vtt b.srt c.csv", len(outcomes))
	}
	if !outcomes[0].OK() || !outcomes[1].OK() {
		t.Fatalf("good files failed: %v / %v", outcomes[0].Err, outcomes[1].Err)
	}
	if outcomes[2].Category != services.CategoryFormat {
		t.Fatalf("c.csv category = %s", outcomes[2].Category)
	}
	if filepath.Base(outcomes[1].Outputs[0]) != "b_fr.srt" {
		t.Fatalf("b output = %v", outcomes[1].Outputs)
	}
}

func TestTranslateAllRejectsPairUpFront(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	writeSubtitles(t, filepath.Join(dir, "a.vtt"), helloWorld())

	_, err := h.manager.TranslateAll(context.Background(), dir, TranslationRequest{Source: "en", Target: "xx"})
	if _, ok := err.(*translation.UnsupportedPairError); !ok {
		t.Fatalf("err = %v, want UnsupportedPairError", err)
	}
	if h.resolver.Calls() != 0 {
		t.Fatalf("device resolved for an unsupported pair")
	}
}
