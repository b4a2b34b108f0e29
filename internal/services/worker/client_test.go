package worker

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
)

// TestHelperWorker is not a real test: it is the worker process launched by
// the tests below.
func TestHelperWorker(t *testing.T) {
	mode := os.Getenv("TEXTIFIER_HELPER_WORKER")
	if mode == "" {
		t.Skip("helper process")
	}
	defer os.Exit(0)

	switch mode {
	case "fail":
		fmt.Fprintln(os.Stderr, "CUDA out of memory")
		fmt.Println(`{"type":"error","error":"model load failed"}`)
		return
	case "crash":
		fmt.Fprintln(os.Stderr, "segfault in decoder")
		os.Exit(9)
	case "hang":
		time.Sleep(time.Minute)
		return
	}

	fmt.Println(`{"type":"ready","model":"tiny","device":"cpu:int8"}`)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		var req struct {
			ID     uint64          `json:"id"`
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			os.Exit(2)
		}
		switch req.Method {
		case "echo":
			fmt.Printf(`{"id":%d,"result":%s}`+"\n", req.ID, req.Params)
		case "fail":
			fmt.Printf(`{"id":%d,"error":{"message":"bad input","kind":"format"}}`+"\n", req.ID)
		case "die":
			os.Exit(3)
		case MethodShutdown:
			return
		}
	}
}

func helperSpec(mode string) Spec {
	return Spec{
		Name:           "helper",
		Command:        os.Args[0],
		Args:           []string{"-test.run=TestHelperWorker"},
		Env:            []string{"TEXTIFIER_HELPER_WORKER=" + mode},
		StartupTimeout: 10 * time.Second,
		GracePeriod:    2 * time.Second,
	}
}

func TestCallRoundTrip(t *testing.T) {
	client, err := Start(context.Background(), helperSpec("ok"))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer client.Close()

	if hello := client.Hello(); hello.Model != "tiny" || hello.Device != "cpu:int8" {
		t.Fatalf("hello = %+v", hello)
	}
	for i := 0; i < 3; i++ {
		var out struct {
			Texts []string `json:"texts"`
		}
		in := map[string]any{"texts": []string{"hello", fmt.Sprint(i)}}
		if err := client.Call(context.Background(), "echo", in, &out); err != nil {
			t.Fatalf("Call %d: %v", i, err)
		}
		if len(out.Texts) != 2 || out.Texts[1] != fmt.Sprint(i) {
			t.Fatalf("out = %+v", out)
		}
	}
}

func TestRemoteErrorSurfaces(t *testing.T) {
	client, err := Start(context.Background(), helperSpec("ok"))
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	err = client.Call(context.Background(), "fail", nil, nil)
	var remote *RemoteError
	if !errors.As(err, &remote) || remote.Kind != "format" || remote.Message != "bad input" {
		t.Fatalf("err = %v", err)
	}
	// The worker is still usable after a request-level error.
	if err := client.Call(context.Background(), "echo", map[string]int{"n": 1}, nil); err != nil {
		t.Fatalf("echo after failure: %v", err)
	}
}

func TestWorkerExitDuringCall(t *testing.T) {
	client, err := Start(context.Background(), helperSpec("ok"))
	if err != nil {
		t.Fatal(err)
	}
	err = client.Call(context.Background(), "die", nil, nil)
	if !errors.Is(err, ErrExited) {
		t.Fatalf("expected ErrExited, got %v", err)
	}
	if err := client.Call(context.Background(), "echo", nil, nil); !errors.Is(err, ErrExited) {
		t.Fatalf("call after exit = %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestStartFailureCarriesStderr(t *testing.T) {
	_, err := Start(context.Background(), helperSpec("fail"))
	var startErr *StartError
	if !errors.As(err, &startErr) {
		t.Fatalf("expected StartError, got %v", err)
	}
	if !strings.Contains(startErr.Error(), "model load failed") {
		t.Fatalf("error = %v", startErr)
	}

	_, err = Start(context.Background(), helperSpec("crash"))
	if !errors.As(err, &startErr) || !errors.Is(err, ErrExited) {
		t.Fatalf("expected exited StartError, got %v", err)
	}
	if !strings.Contains(startErr.Stderr, "segfault in decoder") {
		t.Fatalf("stderr = %q", startErr.Stderr)
	}
}

func TestStartTimeout(t *testing.T) {
	spec := helperSpec("hang")
	spec.StartupTimeout = 200 * time.Millisecond
	spec.GracePeriod = 100 * time.Millisecond
	started := time.Now()
	_, err := Start(context.Background(), spec)
	if err == nil {
		t.Fatal("expected timeout")
	}
	if time.Since(started) > 10*time.Second {
		t.Fatalf("timeout took %s", time.Since(started))
	}
}

func TestStartMissingCommand(t *testing.T) {
	_, err := Start(context.Background(), Spec{Name: "none", Command: "/nonexistent/textifier-worker"})
	var startErr *StartError
	if !errors.As(err, &startErr) {
		t.Fatalf("expected StartError, got %v", err)
	}
}

func TestTailBufferKeepsEnd(t *testing.T) {
	b := &tailBuffer{limit: 4}
	_, _ = b.Write([]byte("abc"))
	_, _ = b.Write([]byte("defg"))
	if got := b.String(); got != "defg" {
		t.Fatalf("tail = %q", got)
	}
}
