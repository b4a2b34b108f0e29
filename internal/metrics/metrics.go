// Package metrics holds the Prometheus counters for jobs, spans, guard
// retries, translation batches and device probes. Metrics live in a private
// registry and are exported as a node-exporter textfile after each run.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "textifier"

// Metrics holds all Prometheus metrics for the process.
type Metrics struct {
	registry *prometheus.Registry

	JobsTotal   *prometheus.CounterVec
	JobsActive  prometheus.Gauge
	JobDuration *prometheus.HistogramVec

	SpansTotal   *prometheus.CounterVec
	GuardRetries prometheus.Counter
	CuesEmitted  prometheus.Counter

	TranslationBatches   prometheus.Counter
	TranslationFallbacks prometheus.Counter

	DeviceProbes *prometheus.CounterVec
	AudioSeconds prometheus.Counter
}

// New creates and registers all metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,

		JobsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Jobs finished, by kind and outcome status",
		}, []string{"kind", "status"}),
		JobsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_active",
			Help:      "Jobs currently running",
		}),
		JobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Wall time of finished jobs in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		}, []string{"kind"}),

		SpansTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spans_total",
			Help:      "Speech spans processed, by outcome (cue, silent, skipped)",
		}, []string{"outcome"}),
		GuardRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_retries_total",
			Help:      "Decode attempts rejected by a quality guard and retried",
		}),
		CuesEmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cues_emitted_total",
			Help:      "Cues produced by transcription",
		}),

		TranslationBatches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translation_batches_total",
			Help:      "Translation batches sent to the model",
		}),
		TranslationFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translation_fallbacks_total",
			Help:      "Cues whose blank translation was replaced by the source text",
		}),

		DeviceProbes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "device_probes_total",
			Help:      "Device candidate probes, by profile and result",
		}, []string{"profile", "result"}),
		AudioSeconds: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_seconds_total",
			Help:      "Seconds of audio decoded",
		}),
	}
}

// Registry exposes the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// JobStarted marks a job as running.
func (m *Metrics) JobStarted() {
	if m == nil {
		return
	}
	m.JobsActive.Inc()
}

// JobFinished records a finished job.
func (m *Metrics) JobFinished(kind, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.JobsActive.Dec()
	m.JobsTotal.WithLabelValues(kind, status).Inc()
	m.JobDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// SpanOutcomes adds per-outcome span counts for one transcription.
func (m *Metrics) SpanOutcomes(cues, silent, skipped, retries int) {
	if m == nil {
		return
	}
	m.SpansTotal.WithLabelValues("cue").Add(float64(cues))
	m.SpansTotal.WithLabelValues("silent").Add(float64(silent))
	m.SpansTotal.WithLabelValues("skipped").Add(float64(skipped))
	m.GuardRetries.Add(float64(retries))
	m.CuesEmitted.Add(float64(cues))
}

// TranslationDone records the batches of one translation.
func (m *Metrics) TranslationDone(batches, fallbacks int) {
	if m == nil {
		return
	}
	m.TranslationBatches.Add(float64(batches))
	m.TranslationFallbacks.Add(float64(fallbacks))
}

// DeviceProbe records one candidate probe.
func (m *Metrics) DeviceProbe(profile string, ok bool) {
	if m == nil {
		return
	}
	result := "failed"
	if ok {
		result = "ok"
	}
	m.DeviceProbes.WithLabelValues(profile, result).Inc()
}

// AudioDecoded records decoded audio length.
func (m *Metrics) AudioDecoded(d time.Duration) {
	if m == nil {
		return
	}
	m.AudioSeconds.Add(d.Seconds())
}

// WriteTextfile writes the registry in text format to path, atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Sample is one flattened counter or gauge value.
type Sample struct {
	Name   string
	Labels map[string]string
	Value  float64
}

// Snapshot gathers the current counter and gauge values, sorted by name.
// Histograms report their sample count.
func (m *Metrics) Snapshot() ([]Sample, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}
	var samples []Sample
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			samples = append(samples, Sample{
				Name:   family.GetName(),
				Labels: labelMap(metric.GetLabel()),
				Value:  metricValue(family.GetType(), metric),
			})
		}
	}
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].Name < samples[j].Name })
	return samples, nil
}

func labelMap(pairs []*dto.LabelPair) map[string]string {
	if len(pairs) == 0 {
		return nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		out[pair.GetName()] = pair.GetValue()
	}
	return out
}

func metricValue(kind dto.MetricType, metric *dto.Metric) float64 {
	switch kind {
	case dto.MetricType_COUNTER:
		return metric.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return metric.GetGauge().GetValue()
	case dto.MetricType_HISTOGRAM:
		return float64(metric.GetHistogram().GetSampleCount())
	default:
		return 0
	}
}
