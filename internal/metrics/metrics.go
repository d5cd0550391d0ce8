// Package metrics exports list-manager and pipeline activity as Prometheus
// metrics.
package metrics

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/zjrosen/pflow/internal/cachemanager"
	"github.com/zjrosen/pflow/internal/status"
)

const namespace = "pflow"

// Recorder holds the collectors. The zero value is not usable; build one
// with New.
type Recorder struct {
	operations *prometheus.CounterVec
	lists      *prometheus.GaugeVec
	objects    *prometheus.GaugeVec
	events     *prometheus.CounterVec
	eventTime  prometheus.Histogram
	algoTime   *prometheus.HistogramVec
	cacheHits  *prometheus.GaugeVec
	cacheItems *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		return nil, errors.New("metrics: nil registerer")
	}
	r := &Recorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listmgr",
			Name:      "operations_total",
			Help:      "List manager operations by manager, operation and result code.",
		}, []string{"manager", "op", "code"}),
		lists: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "listmgr",
			Name:      "lists",
			Help:      "Registered lists per manager, including the null list.",
		}, []string{"manager"}),
		objects: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "listmgr",
			Name:      "objects",
			Help:      "Live objects per manager.",
		}, []string{"manager"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "events_total",
			Help:      "Processed events by outcome.",
		}, []string{"outcome"}),
		eventTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "event_duration_seconds",
			Help:      "Wall time to process one event.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		algoTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "algorithm_duration_seconds",
			Help:      "Wall time of one algorithm run, daughters included.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"algorithm"}),
		cacheHits: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hit_ratio",
			Help:      "Cache hit ratio since the cache was last flushed.",
		}, []string{"cache"}),
		cacheItems: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "items",
			Help:      "Entries held by the cache.",
		}, []string{"cache"}),
	}

	for _, c := range []prometheus.Collector{
		r.operations, r.lists, r.objects, r.events, r.eventTime, r.algoTime, r.cacheHits, r.cacheItems,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("metrics: register: %w", err)
		}
	}
	return r, nil
}

// RecordOperation counts one list-manager operation.
func (r *Recorder) RecordOperation(manager, op string, code status.Code) {
	r.operations.WithLabelValues(manager, op, code.String()).Inc()
}

// RecordSize sets the list and object gauges of a manager.
func (r *Recorder) RecordSize(manager string, lists, objects int) {
	r.lists.WithLabelValues(manager).Set(float64(lists))
	r.objects.WithLabelValues(manager).Set(float64(objects))
}

// RecordEvent counts a processed event and observes its duration.
func (r *Recorder) RecordEvent(outcome string, d time.Duration) {
	r.events.WithLabelValues(outcome).Inc()
	r.eventTime.Observe(d.Seconds())
}

// RecordAlgorithm observes the duration of one algorithm run.
func (r *Recorder) RecordAlgorithm(algorithm string, d time.Duration) {
	r.algoTime.WithLabelValues(algorithm).Observe(d.Seconds())
}

// RecordCache publishes cache statistics.
func (r *Recorder) RecordCache(s cachemanager.Stats) {
	r.cacheHits.WithLabelValues(s.UseCase).Set(s.HitRatio())
	r.cacheItems.WithLabelValues(s.UseCase).Set(float64(s.Items))
}

// WriteText writes every metric gathered by g in the Prometheus text format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("metrics: gather: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("metrics: encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
