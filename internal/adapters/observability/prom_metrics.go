package observability

import (
	"context"
	"io"
	"os"

	kitlog "github.com/go-kit/kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/NominalSystems/go-nominal-example/internal/ports"
)

// PromObs records workflow metrics in its own registry and writes logfmt
// logs through a go-kit logger.
type PromObs struct {
	registry *prometheus.Registry
	logger   kitlog.Logger
	counters map[string]*prometheus.CounterVec
	gauges   map[string]prometheus.Gauge
	histos   map[string]*prometheus.HistogramVec
}

type Option func(*PromObs)

// WithLogger replaces the default stderr logfmt logger.
func WithLogger(l kitlog.Logger) Option {
	return func(p *PromObs) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithLogWriter sends logfmt output to w.
func WithLogWriter(w io.Writer) Option {
	return func(p *PromObs) {
		if w != nil {
			p.logger = newLogger(w)
		}
	}
}

func newLogger(w io.Writer) kitlog.Logger {
	l := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(w))
	return kitlog.With(l, "ts", kitlog.DefaultTimestampUTC)
}

func NewPromObs(opts ...Option) *PromObs {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nominal_engine_requests_total",
		Help: "Requests issued to the simulation engine.",
	}, []string{"op"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nominal_engine_request_failures_total",
		Help: "Engine requests that returned an error.",
	}, []string{"op"})
	results := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nominal_results_emitted_total",
		Help: "[[RESULT]] lines printed.",
	}, nil)
	exportFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nominal_export_failures_total",
		Help: "Series that could not be written to a sink.",
	}, []string{"sink"})
	simTime := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nominal_sim_time_seconds",
		Help: "Simulated seconds elapsed.",
	})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nominal_engine_request_latency_seconds",
		Help:    "Round-trip latency of engine requests.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	}, []string{"op"})

	reg := prometheus.NewRegistry()
	reg.MustRegister(requests, failures, results, exportFailures, simTime, latency)

	p := &PromObs{
		registry: reg,
		logger:   newLogger(os.Stderr),
		counters: map[string]*prometheus.CounterVec{
			"nominal_engine_requests_total":         requests,
			"nominal_engine_request_failures_total": failures,
			"nominal_results_emitted_total":         results,
			"nominal_export_failures_total":         exportFailures,
		},
		gauges: map[string]prometheus.Gauge{
			"nominal_sim_time_seconds": simTime,
		},
		histos: map[string]*prometheus.HistogramVec{
			"nominal_engine_request_latency_seconds": latency,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Registry exposes the collectors, e.g. for promhttp or tests.
func (p *PromObs) Registry() *prometheus.Registry { return p.registry }

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.log("info", msg, nil, fields)
}

func (p *PromObs) LogWarn(msg string, fields ...ports.Field) {
	p.log("warning", msg, nil, fields)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	p.log("error", msg, err, fields)
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	p.log("critical", msg, err, fields)
}

func (p *PromObs) log(level, msg string, err error, fields []ports.Field) {
	kv := make([]any, 0, 6+2*len(fields))
	kv = append(kv, "level", level, "subsys", "nominal", "msg", msg)
	if err != nil {
		kv = append(kv, "err", err)
	}
	for _, f := range fields {
		kv = append(kv, f.Key, f.Value)
	}
	_ = p.logger.Log(kv...)
}

func (p *PromObs) IncCounter(name string, v float64, labels ...string) {
	c, ok := p.counters[name]
	if !ok {
		return
	}
	m, err := c.GetMetricWithLabelValues(labels...)
	if err != nil {
		p.log("warning", "metric_label_mismatch", err, []ports.Field{{Key: "metric", Value: name}})
		return
	}
	m.Add(v)
}

func (p *PromObs) ObserveLatency(name string, seconds float64, labels ...string) {
	h, ok := p.histos[name]
	if !ok {
		return
	}
	m, err := h.GetMetricWithLabelValues(labels...)
	if err != nil {
		p.log("warning", "metric_label_mismatch", err, []ports.Field{{Key: "metric", Value: name}})
		return
	}
	m.Observe(seconds)
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

// Push sends every collected metric to a Prometheus Pushgateway.
func (p *PromObs) Push(ctx context.Context, url, job string) error {
	return push.New(url, job).Gatherer(p.registry).PushContext(ctx)
}

var _ ports.Observability = (*PromObs)(nil)
