package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestJobCounters(t *testing.T) {
	m := New()
	m.JobStarted()
	m.JobStarted()
	m.JobFinished("transcription", "succeeded", 3*time.Second)

	if got := testutil.ToFloat64(m.JobsActive); got != 1 {
		t.Fatalf("jobs_active = %v", got)
	}
	if got := testutil.ToFloat64(m.JobsTotal.WithLabelValues("transcription", "succeeded")); got != 1 {
		t.Fatalf("jobs_total = %v", got)
	}
	if got := testutil.CollectAndCount(m.JobDuration); got != 1 {
		t.Fatalf("job_duration series = %d", got)
	}
}

func TestSpanOutcomes(t *testing.T) {
	m := New()
	m.SpanOutcomes(2, 1, 1, 3)
	if got := testutil.ToFloat64(m.SpansTotal.WithLabelValues("silent")); got != 1 {
		t.Fatalf("silent = %v", got)
	}
	if got := testutil.ToFloat64(m.GuardRetries); got != 3 {
		t.Fatalf("retries = %v", got)
	}
	expected := `
# HELP textifier_cues_emitted_total Cues produced by transcription
# TYPE textifier_cues_emitted_total counter
textifier_cues_emitted_total 2
`
	if err := testutil.CollectAndCompare(m.CuesEmitted, strings.NewReader(expected)); err != nil {
		t.Fatal(err)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.JobStarted()
	m.JobFinished("translation", "failed", time.Second)
	m.DeviceProbe("cpu:int8", true)
	if err := m.WriteTextfile("/nonexistent/metrics.prom"); err != nil {
		t.Fatalf("nil WriteTextfile: %v", err)
	}
}

func TestWriteTextfileAndSnapshot(t *testing.T) {
	m := New()
	m.DeviceProbe("cuda:float16", false)
	m.DeviceProbe("cpu:int8", true)
	m.TranslationDone(4, 1)

	path := filepath.Join(t.TempDir(), "collector", "textifier.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `textifier_device_probes_total{profile="cuda:float16",result="failed"} 1`) {
		t.Fatalf("textfile missing probe counter:\n%s", data)
	}

	samples, err := m.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	var batches float64
	for _, s := range samples {
		if s.Name == "textifier_translation_batches_total" {
			batches = s.Value
		}
	}
	if batches != 4 {
		t.Fatalf("batches = %v in %+v", batches, samples)
	}
}
