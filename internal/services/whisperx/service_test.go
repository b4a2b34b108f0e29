package whisperx

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"testing"
	"time"

	"textifier/internal/audio"
	"textifier/internal/hardware"
	"textifier/internal/inference"
	"textifier/internal/services"
)

var cudaFP16 = hardware.DeviceProfile{Backend: hardware.BackendCUDA, Precision: hardware.PrecisionFloat16}

func TestBuildArgsCUDAWithUVX(t *testing.T) {
	args := BuildArgs(Config{
		Command:   "/usr/bin/uvx",
		Args:      []string{"--from", "textifier-workers", "textifier-asr-worker"},
		ModelPath: "/models/transcription/large-v3",
		Profile:   cudaFP16,
	})
	joined := strings.Join(args, " ")
	if !strings.HasPrefix(joined, "--index-url "+CUDAIndexURL+" --extra-index-url "+PypiIndexURL+" --from textifier-workers") {
		t.Fatalf("args = %s", joined)
	}
	for _, want := range []string{"--model /models/transcription/large-v3", "--device cuda", "--compute_type float16", "--vad_method silero"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args %q missing %q", joined, want)
		}
	}
}

func TestBuildArgsCPUCustomCommand(t *testing.T) {
	args := BuildArgs(Config{
		Command:   "textifier-asr-worker",
		Profile:   hardware.DeviceProfile{Backend: hardware.BackendCPU, Precision: hardware.PrecisionInt8},
		VADMethod: VADMethodPyannote,
	})
	if slices.Contains(args, "--index-url") {
		t.Fatalf("index url passed to non-uvx command: %v", args)
	}
	joined := strings.Join(args, " ")
	for _, want := range []string{"--model " + DefaultModel, "--device cpu", "--compute_type int8", "--vad_method pyannote"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args %q missing %q", joined, want)
		}
	}
}

func TestBuildEnvForwardsToken(t *testing.T) {
	t.Setenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD", "")
	env := buildEnv(Config{HFToken: " hf_abc "})
	if !slices.Contains(env, "HF_TOKEN=hf_abc") || !slices.Contains(env, "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1") {
		t.Fatalf("env = %v", env)
	}
}

func TestAudioCodec(t *testing.T) {
	in := []float32{0, 0.5, -0.5, 1, -1, 0.25}
	out, err := DecodeAudio(EncodeAudio(in))
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(in, out) {
		t.Fatalf("decoded = %v", out)
	}
}

// TestHelperASRWorker is the fake worker process used below.
func TestHelperASRWorker(t *testing.T) {
	mode := os.Getenv("TEXTIFIER_HELPER_ASR")
	if mode == "" {
		t.Skip("helper process")
	}
	defer os.Exit(0)
	if mode == "fail" {
		fmt.Fprintln(os.Stderr, "RuntimeError: CUDA driver version is insufficient")
		os.Exit(1)
	}
	fmt.Println(`{"type":"ready","model":"tiny"}`)
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(nil, 16<<20)
	for scanner.Scan() {
		var req struct {
			ID     uint64 `json:"id"`
			Method string `json:"method"`
			Params struct {
				Audio       audioPayload `json:"audio"`
				Temperature float64      `json:"temperature"`
				Language    string       `json:"language"`
			} `json:"params"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			os.Exit(2)
		}
		data, _ := base64.StdEncoding.DecodeString(req.Params.Audio.Data)
		samples, err := DecodeAudio(data)
		if err != nil || len(samples) != req.Params.Audio.Samples {
			fmt.Printf(`{"id":%d,"error":{"message":"bad audio"}}`+"\n", req.ID)
			continue
		}
		switch req.Method {
		case "detect_spans":
			secs := float64(len(samples)) / float64(req.Params.Audio.SampleRate)
			fmt.Printf(`{"id":%d,"result":{"spans":[{"start":0,"end":%g}]}}`+"\n", req.ID, secs)
		case "decode":
			fmt.Printf(`{"id":%d,"result":{"text":"%d samples in %s","avg_logprob":-0.2,"no_speech_prob":0.01,"language":"en"}}`+"\n",
				req.ID, len(samples), req.Params.Language)
		case "shutdown":
			return
		}
	}
}

func helperConfig(t *testing.T, mode string) Config {
	t.Helper()
	t.Setenv("TEXTIFIER_HELPER_ASR", mode)
	return Config{
		Model:          "tiny",
		Command:        os.Args[0],
		Args:           []string{"-test.run=TestHelperASRWorker", "--"},
		Profile:        hardware.DeviceProfile{Backend: hardware.BackendCPU, Precision: hardware.PrecisionInt8},
		StartupTimeout: 10 * time.Second,
	}
}

func TestEngineDrivesInferenceSession(t *testing.T) {
	cfg := helperConfig(t, "ok")

	engine, err := Start(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer engine.Close()

	samples := make([]float32, audio.SampleRate*2)
	session := inference.NewSession(engine, cfg.Profile, inference.DefaultDecodingConfig(), nil)
	stream, err := session.Transcribe(context.Background(), samples, "en", nil)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	doc, err := stream.Drain()
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if doc.Len() != 1 || doc.Cues[0].Text != "32000 samples in en" || doc.Cues[0].End != 2*time.Second {
		t.Fatalf("doc = %+v", doc.Cues)
	}
}

func TestStartFailureIsModelLoadError(t *testing.T) {
	cfg := helperConfig(t, "fail")

	_, err := Start(context.Background(), cfg)
	var loadErr *inference.ModelLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected ModelLoadError, got %v", err)
	}
	if services.Classify(err) != services.CategoryModel {
		t.Fatalf("category = %q", services.Classify(err))
	}
	if !strings.Contains(err.Error(), "CUDA driver version is insufficient") {
		t.Fatalf("error lacks worker stderr: %v", err)
	}
}
