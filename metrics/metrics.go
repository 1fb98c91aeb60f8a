// Package metrics exports reader activity as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/oleg578/lanecsv"
)

const subsystem = "reader"

// Collector implements lanecsv.Observer. One Collector may be shared by many
// readers; the underlying metrics are safe for concurrent use.
type Collector struct {
	records      prometheus.Counter
	fields       prometheus.Counter
	tokens       prometheus.Counter
	refills      prometheus.Counter
	windowTokens prometheus.Histogram
	bufferTokens prometheus.Gauge
	grows        prometheus.Counter
	skipped      *prometheus.CounterVec
	faults       *prometheus.CounterVec
}

var _ lanecsv.Observer = (*Collector)(nil)

// NewCollector registers the reader metrics with reg under namespace. A nil
// reg uses prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer, namespace string) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Collector{
		records: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "records_total",
			Help:      "Records returned to callers.",
		}),
		fields: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "fields_total",
			Help:      "Fields in returned records.",
		}),
		tokens: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tokens_total",
			Help:      "Tokens spanned by returned records, terminators excluded.",
		}),
		refills: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "refills_total",
			Help:      "Reads from the underlying source.",
		}),
		windowTokens: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "window_tokens",
			Help:      "Window size after each refill.",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 10),
		}),
		bufferTokens: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "buffer_tokens",
			Help:      "Capacity of the most recently grown window.",
		}),
		grows: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "buffer_grows_total",
			Help:      "Window growth events.",
		}),
		skipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "skipped_records_total",
			Help:      "Records dropped by an error handler, by error kind.",
		}, []string{"kind"}),
		faults: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "faults_total",
			Help:      "Readers stopped by an error, by error kind.",
		}, []string{"kind"}),
	}
}

func (c *Collector) Refill(window int, _ bool) {
	c.refills.Inc()
	c.windowTokens.Observe(float64(window))
}

func (c *Collector) BufferGrown(size int) {
	c.grows.Inc()
	c.bufferTokens.Set(float64(size))
}

func (c *Collector) RecordRead(fields, tokens int) {
	c.records.Inc()
	c.fields.Add(float64(fields))
	c.tokens.Add(float64(tokens))
}

func (c *Collector) RecordSkipped(kind string) {
	c.skipped.WithLabelValues(kind).Inc()
}

func (c *Collector) Fault(kind string) {
	c.faults.WithLabelValues(kind).Inc()
}
