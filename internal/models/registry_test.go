package models

import (
	"context"
	"errors"
	"testing"

	"textifier/internal/hardware"
	"textifier/internal/inference"
	"textifier/internal/services"
	"textifier/internal/services/mbart"
	"textifier/internal/services/whisperx"
	"textifier/internal/testsupport"
	"textifier/internal/translation"
)

type stubEngine struct{ closed bool }

func (s *stubEngine) DetectSpans(context.Context, []float32) ([]inference.Span, error) {
	return nil, nil
}

func (s *stubEngine) Decode(context.Context, inference.Window, inference.DecodeOptions) (inference.Hypothesis, error) {
	return inference.Hypothesis{}, nil
}

func (s *stubEngine) Close() error {
	s.closed = true
	return nil
}

type stubModel struct{}

func (stubModel) Translate(_ context.Context, texts []string, _ translation.Request) ([]string, error) {
	return texts, nil
}

func (stubModel) Close() error { return nil }

var gpu = hardware.DeviceProfile{Backend: hardware.BackendCUDA, Precision: hardware.PrecisionFloat16}

func TestTranscriptionModelRequiresInstalledWeights(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	registry := NewWorkerRegistry(cfg, nil)
	registry.startASR = func(context.Context, whisperx.Config) (inference.Engine, error) {
		t.Fatal("worker started for missing model")
		return nil, nil
	}

	_, err := registry.TranscriptionModel(context.Background(), "large-v3", gpu)
	var unavailable *UnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected UnavailableError, got %v", err)
	}
	if unavailable.Path != registry.Path(KindTranscription, "large-v3") {
		t.Fatalf("path = %q", unavailable.Path)
	}
	if services.Classify(err) != services.CategoryModel {
		t.Fatalf("category = %q", services.Classify(err))
	}
}

func TestTranscriptionModelStartsWorker(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithModels("transcription", "large-v3", "tiny"))
	registry := NewWorkerRegistry(cfg, nil)
	var got whisperx.Config
	registry.startASR = func(_ context.Context, c whisperx.Config) (inference.Engine, error) {
		got = c
		return &stubEngine{}, nil
	}

	if _, err := registry.TranscriptionModel(context.Background(), "", gpu); err != nil {
		t.Fatalf("TranscriptionModel: %v", err)
	}
	if got.Model != "large-v3" || got.Profile != gpu || got.ModelPath != registry.Path(KindTranscription, "large-v3") {
		t.Fatalf("worker config = %+v", got)
	}
	if got.Command != cfg.Workers.TranscriptionCommand {
		t.Fatalf("command = %q", got.Command)
	}

	names, err := registry.Installed(KindTranscription)
	if err != nil || len(names) != 2 || names[0] != "large-v3" || names[1] != "tiny" {
		t.Fatalf("installed = %v, %v", names, err)
	}
}

func TestTranslationModelChecksPairFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	registry := NewWorkerRegistry(cfg, nil)
	_, err := registry.TranslationModel(context.Background(), "en", "xx-unknown", gpu)
	var pairErr *translation.UnsupportedPairError
	if !errors.As(err, &pairErr) {
		t.Fatalf("expected UnsupportedPairError, got %v", err)
	}
}

func TestTranslationModelStartsWorker(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithModels("translation", "mbart-large-50-many-to-many-mmt"))
	registry := NewWorkerRegistry(cfg, nil)
	var got mbart.Config
	registry.startMT = func(_ context.Context, c mbart.Config) (translation.Model, error) {
		got = c
		return stubModel{}, nil
	}
	if _, err := registry.TranslationModel(context.Background(), "en", "de", gpu); err != nil {
		t.Fatalf("TranslationModel: %v", err)
	}
	if got.Model != cfg.Translation.Model || got.Command != cfg.Workers.TranslationCommand {
		t.Fatalf("worker config = %+v", got)
	}
}

func TestProbeLoaderUsesProbeModel(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithModels("transcription", "tiny"))
	registry := NewWorkerRegistry(cfg, nil)
	engine := &stubEngine{}
	registry.startASR = func(_ context.Context, c whisperx.Config) (inference.Engine, error) {
		if c.Model != "tiny" {
			t.Fatalf("probe model = %q", c.Model)
		}
		return engine, nil
	}
	resolver := hardware.NewResolver(hardware.NewModelProber(registry.ProbeLoader()), hardware.Options{
		Candidates: []hardware.DeviceProfile{{Backend: hardware.BackendCPU, Precision: hardware.PrecisionInt8}},
	})
	profile, err := resolver.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if profile.Backend != hardware.BackendCPU || !engine.closed {
		t.Fatalf("profile = %v closed = %v", profile, engine.closed)
	}
}
