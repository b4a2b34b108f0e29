package mbart

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"textifier/internal/hardware"
	"textifier/internal/services"
	"textifier/internal/subtitles"
	"textifier/internal/translation"
)

func TestHelperMTWorker(t *testing.T) {
	mode := os.Getenv("TEXTIFIER_HELPER_MT")
	if mode == "" {
		t.Skip("helper process")
	}
	defer os.Exit(0)
	if mode == "fail" {
		fmt.Println(`{"type":"error","error":"checkpoint not found"}`)
		return
	}
	fmt.Println(`{"type":"ready","model":"mbart"}`)
	dict := map[string]string{"Hello": "Bonjour", "World": "Monde"}
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		var req struct {
			ID     uint64          `json:"id"`
			Method string          `json:"method"`
			Params translateParams `json:"params"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			os.Exit(2)
		}
		if req.Method != "translate" {
			return
		}
		if req.Params.SourceLang != "en_XX" || req.Params.TargetLang != "fr_XX" || req.Params.NumBeams != 5 {
			fmt.Printf(`{"id":%d,"error":{"message":"unexpected params"}}`+"\n", req.ID)
			continue
		}
		out := make([]string, len(req.Params.Texts))
		for i, text := range req.Params.Texts {
			out[i] = dict[text]
		}
		payload, _ := json.Marshal(map[string]any{"texts": out})
		fmt.Printf(`{"id":%d,"result":%s}`+"\n", req.ID, payload)
	}
}

func helperConfig(t *testing.T, mode string) Config {
	t.Helper()
	t.Setenv("TEXTIFIER_HELPER_MT", mode)
	return Config{
		Command:        os.Args[0],
		Args:           []string{"-test.run=TestHelperMTWorker", "--"},
		StartupTimeout: 10 * time.Second,
	}
}

func TestModelTranslatesThroughPipeline(t *testing.T) {
	model, err := Start(context.Background(), helperConfig(t, "ok"))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer model.Close()

	doc := &subtitles.Document{Language: "en", Cues: []subtitles.Cue{
		subtitles.NewCue(0, time.Second, "Hello"),
		subtitles.NewCue(time.Second, 2*time.Second, "World"),
	}}
	pipeline := translation.NewPipeline(model, translation.Config{MaxBatchSize: 1}, nil)
	result, err := pipeline.Translate(context.Background(), translation.Job{Document: doc, Source: "en", Target: "fr"})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got := strings.Join(result.Document.Texts(), "|"); got != "Bonjour|Monde" {
		t.Fatalf("texts = %q", got)
	}
	if result.Batches != 2 {
		t.Fatalf("batches = %d", result.Batches)
	}
}

func TestStartFailure(t *testing.T) {
	_, err := Start(context.Background(), helperConfig(t, "fail"))
	var loadErr *LoadError
	if !errors.As(err, &loadErr) || !strings.Contains(err.Error(), "checkpoint not found") {
		t.Fatalf("err = %v", err)
	}
	if services.Classify(err) != services.CategoryModel {
		t.Fatalf("category = %q", services.Classify(err))
	}
}

func TestBuildArgs(t *testing.T) {
	args := BuildArgs(Config{
		Command:   "uvx",
		Args:      []string{"--from", "textifier-workers", "textifier-mt-worker"},
		ModelPath: "/models/translation/mbart",
		Profile:   hardware.DeviceProfile{Backend: hardware.BackendCUDA, Precision: hardware.PrecisionFloat16},
	})
	joined := strings.Join(args, " ")
	want := "--index-url " + CUDAIndexURL + " --extra-index-url " + PypiIndexURL +
		" --from textifier-workers textifier-mt-worker --model /models/translation/mbart --device cuda --compute_type float16"
	if joined != want {
		t.Fatalf("args = %q\nwant   %q", joined, want)
	}
}
