// Package metrics writes CloudWatch Embedded Metric Format (EMF) documents:
// one JSON line per generation attempt that CloudWatch Logs turns into
// metrics when the output is shipped there.
//
// See: https://docs.aws.amazon.com/AmazonCloudWatch/latest/monitoring/CloudWatch_Embedded_Metric_Format_Specification.html
package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

// Namespace is the CloudWatch namespace for all generation metrics.
const Namespace = "ComixGenerator"

// Metric names.
const (
	MetricLatency = "GenerationLatencyMs"
	MetricResult  = "GenerationResult"
)

// CloudWatch units.
const (
	UnitMilliseconds = "Milliseconds"
	UnitCount        = "Count"
)

type metricDef struct {
	Name string `json:"Name"`
	Unit string `json:"Unit"`
}

type directive struct {
	Timestamp         int64      `json:"Timestamp"`
	CloudWatchMetrics []cwMetric `json:"CloudWatchMetrics"`
}

type cwMetric struct {
	Namespace  string      `json:"Namespace"`
	Dimensions [][]string  `json:"Dimensions"`
	Metrics    []metricDef `json:"Metrics"`
}

// Recorder accumulates one EMF document. Not safe for concurrent use.
type Recorder struct {
	out        io.Writer
	namespace  string
	now        func() time.Time
	dimensions map[string]string
	metrics    map[string]metricDef
	values     map[string]float64
	properties map[string]any
}

// New returns a Recorder writing to out.
func New(out io.Writer, namespace string) *Recorder {
	return &Recorder{
		out:        out,
		namespace:  namespace,
		now:        time.Now,
		dimensions: make(map[string]string),
		metrics:    make(map[string]metricDef),
		values:     make(map[string]float64),
		properties: make(map[string]any),
	}
}

// Dimension adds an indexed key-value pair.
func (r *Recorder) Dimension(key, value string) *Recorder {
	r.dimensions[key] = value
	return r
}

// Metric records a value with its unit.
func (r *Recorder) Metric(name string, value float64, unit string) *Recorder {
	r.metrics[name] = metricDef{Name: name, Unit: unit}
	r.values[name] = value
	return r
}

// Count records a count of one.
func (r *Recorder) Count(name string) *Recorder {
	return r.Metric(name, 1, UnitCount)
}

// Property adds a searchable field that is not a metric.
func (r *Recorder) Property(key string, value any) *Recorder {
	r.properties[key] = value
	return r
}

// Flush writes the document as one line. A recorder with no metrics writes
// nothing.
func (r *Recorder) Flush() error {
	if len(r.metrics) == 0 {
		return nil
	}

	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	defs := make([]metricDef, 0, len(names))
	for _, name := range names {
		defs = append(defs, r.metrics[name])
	}

	dimKeys := make([]string, 0, len(r.dimensions))
	for k := range r.dimensions {
		dimKeys = append(dimKeys, k)
	}
	sort.Strings(dimKeys)

	doc := make(map[string]any, 1+len(r.dimensions)+len(r.values)+len(r.properties))
	for k, v := range r.properties {
		doc[k] = v
	}
	for k, v := range r.dimensions {
		doc[k] = v
	}
	for k, v := range r.values {
		doc[k] = v
	}
	doc["_aws"] = directive{
		Timestamp: r.now().UnixMilli(),
		CloudWatchMetrics: []cwMetric{{
			Namespace:  r.namespace,
			Dimensions: [][]string{dimKeys},
			Metrics:    defs,
		}},
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("emf: marshal metrics: %w", err)
	}
	if _, err := fmt.Fprintln(r.out, string(data)); err != nil {
		return fmt.Errorf("emf: write metrics: %w", err)
	}
	return nil
}

// RecordGeneration writes the latency and result count of one attempt.
// Write failures are logged and otherwise ignored.
func RecordGeneration(out io.Writer, endpoint, outcome string, elapsed time.Duration) {
	err := New(out, Namespace).
		Dimension("Outcome", outcome).
		Metric(MetricLatency, float64(elapsed.Milliseconds()), UnitMilliseconds).
		Count(MetricResult).
		Property("endpoint", endpoint).
		Flush()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to write generation metrics")
	}
}
