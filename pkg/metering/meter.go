// Package metering exposes the SDK's operation metrics to Prometheus.
package metering

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/couchbase/gocb/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// ErrTagMismatch is returned when a metric is requested again with a
// different set of tag keys than it was first registered with.
var ErrTagMismatch = errors.New("metric requested with a different set of tags")

// DurationBuckets are the histogram buckets used for value recorders. The
// SDK records operation durations in microseconds.
var DurationBuckets = prometheus.ExponentialBuckets(100, 4, 8)

// Meter implements gocb.Meter by registering Prometheus collectors on
// demand: counters become CounterVecs and value recorders HistogramVecs,
// with the SDK's tags as labels.
type Meter struct {
	reg       prometheus.Registerer
	namespace string

	mu         sync.Mutex
	counters   map[string]*counterVec
	histograms map[string]*histogramVec
}

type counterVec struct {
	vec    *prometheus.CounterVec
	labels []string
}

type histogramVec struct {
	vec    *prometheus.HistogramVec
	labels []string
}

var _ gocb.Meter = (*Meter)(nil)

// NewMeter creates a Meter registering its collectors on reg. namespace, if
// not empty, prefixes every metric name.
func NewMeter(reg prometheus.Registerer, namespace string) *Meter {
	return &Meter{
		reg:        reg,
		namespace:  SanitizeLabelName(namespace),
		counters:   map[string]*counterVec{},
		histograms: map[string]*histogramVec{},
	}
}

// Counter implements gocb.Meter.
func (m *Meter) Counter(name string, tags map[string]string) (gocb.Counter, error) {
	labels, values := splitTags(tags)

	m.mu.Lock()
	defer m.mu.Unlock()

	cv, ok := m.counters[name]
	if !ok {
		vec := prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.namespace,
			Name:      SanitizeMetricName(name),
			Help:      fmt.Sprintf("Couchbase SDK counter %s.", name),
		}, labels)
		if err := m.reg.Register(vec); err != nil {
			return nil, fmt.Errorf("failed to register counter %s: %w", name, err)
		}
		cv = &counterVec{vec: vec, labels: labels}
		m.counters[name] = cv
	} else if !slices.Equal(cv.labels, labels) {
		return nil, fmt.Errorf("%w: %s has %v, got %v", ErrTagMismatch, name, cv.labels, labels)
	}

	c, err := cv.vec.GetMetricWithLabelValues(values...)
	if err != nil {
		return nil, err
	}
	return counter{c}, nil
}

// ValueRecorder implements gocb.Meter.
func (m *Meter) ValueRecorder(name string, tags map[string]string) (gocb.ValueRecorder, error) {
	labels, values := splitTags(tags)

	m.mu.Lock()
	defer m.mu.Unlock()

	hv, ok := m.histograms[name]
	if !ok {
		vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: m.namespace,
			Name:      SanitizeMetricName(name),
			Help:      fmt.Sprintf("Couchbase SDK value recorder %s.", name),
			Buckets:   DurationBuckets,
		}, labels)
		if err := m.reg.Register(vec); err != nil {
			return nil, fmt.Errorf("failed to register value recorder %s: %w", name, err)
		}
		hv = &histogramVec{vec: vec, labels: labels}
		m.histograms[name] = hv
	} else if !slices.Equal(hv.labels, labels) {
		return nil, fmt.Errorf("%w: %s has %v, got %v", ErrTagMismatch, name, hv.labels, labels)
	}

	o, err := hv.vec.GetMetricWithLabelValues(values...)
	if err != nil {
		return nil, err
	}
	return valueRecorder{o}, nil
}

// splitTags returns the sanitised tag keys in sorted order and the matching values.
func splitTags(tags map[string]string) (labels, values []string) {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	labels = make([]string, len(keys))
	values = make([]string, len(keys))
	for i, k := range keys {
		labels[i] = SanitizeLabelName(k)
		values[i] = tags[k]
	}
	return labels, values
}

type counter struct {
	c prometheus.Counter
}

func (c counter) IncrementBy(num uint64) {
	c.c.Add(float64(num))
}

type valueRecorder struct {
	o prometheus.Observer
}

func (r valueRecorder) RecordValue(val uint64) {
	r.o.Observe(float64(val))
}

// SanitizeMetricName maps name onto the Prometheus metric name alphabet,
// replacing every other character with an underscore.
func SanitizeMetricName(name string) string {
	return sanitize(name, true)
}

// SanitizeLabelName is SanitizeMetricName for label names, which may not
// contain colons.
func SanitizeLabelName(name string) string {
	return sanitize(name, false)
}

func sanitize(name string, allowColon bool) string {
	if name == "" {
		return ""
	}
	var b strings.Builder
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		case r == ':' && allowColon:
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
