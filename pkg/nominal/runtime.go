package nominal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	nominalapi "github.com/NominalSystems/go-nominal-example/internal/adapters/nominal"
	"github.com/NominalSystems/go-nominal-example/internal/adapters/observability"
	"github.com/NominalSystems/go-nominal-example/internal/adapters/sink"
	"github.com/NominalSystems/go-nominal-example/internal/app/workflow"
	"github.com/NominalSystems/go-nominal-example/internal/ports"
)

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	connector     Connector
	sinks         []Sink
	observability Observability
	out           io.Writer
	dryRun        bool
}

// WithConnector replaces the HTTP engine client, e.g. with a local simulator.
func WithConnector(c Connector) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.connector = c
	}
}

// WithSink mirrors every exported series into s in addition to the configured sinks.
func WithSink(s Sink) RuntimeOption {
	return func(o *runtimeOverrides) {
		if s != nil {
			o.sinks = append(o.sinks, s)
		}
	}
}

// WithObservability plugs in a custom logging/metrics backend.
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.observability = obs
	}
}

// WithOutput redirects the console transcript (defaults to stdout).
func WithOutput(w io.Writer) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.out = w
	}
}

// WithDryRun runs against the in-process simulator instead of the hosted API.
func WithDryRun() RuntimeOption {
	return func(o *runtimeOverrides) {
		o.dryRun = true
	}
}

// Runtime wires credentials → session → scenario → stepper → export and owns
// the optional database, OPC UA and metrics resources around a run.
type Runtime struct {
	cfg        *Config
	obs        ports.Observability
	prom       *observability.PromObs
	connector  ports.Connector
	sinks      []ports.Sink
	out        io.Writer
	db         *sql.DB
	opcua      *sink.OPCUASink
	metricsSrv *http.Server
}

// NewRuntime bootstraps the default adapters (HTTP engine client, Prometheus
// observability, and the Timescale/OPC UA mirrors when configured). Callers
// override any of them with RuntimeOption values.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	r := &Runtime{cfg: cfg, out: overrides.out}
	if r.out == nil {
		r.out = os.Stdout
	}

	r.obs = overrides.observability
	if r.obs == nil {
		r.prom = observability.NewPromObs()
		r.obs = r.prom
	}

	conn := overrides.connector
	switch {
	case conn != nil:
	case overrides.dryRun:
		conn = DryRunConnector()
	default:
		conn = nominalapi.NewConnector(nominalapi.WithTimeout(cfg.API.Timeout))
	}
	r.connector = observability.InstrumentConnector(conn, r.obs)

	if cfg.Timescale.ConnString != "" {
		db, err := sql.Open("postgres", cfg.Timescale.ConnString)
		if err != nil {
			return nil, err
		}
		r.db = db
		r.sinks = append(r.sinks, sink.NewTimescaleSink(db, cfg.Timescale.Table, cfg.Scenario.Epoch))
	}
	if cfg.OPCUA.Enabled() {
		s, err := sink.NewOPCUASink(cfg.OPCUA, cfg.Scenario.Epoch)
		if err != nil {
			_ = r.closeDB()
			return nil, err
		}
		r.opcua = s
		r.sinks = append(r.sinks, s)
	}
	r.sinks = append(r.sinks, overrides.sinks...)

	return r, nil
}

// Run executes one simulation end to end and releases the runtime's
// resources. A non-nil error with a non-nil report means the run completed
// but some exports failed; see IsFatal.
func (r *Runtime) Run(ctx context.Context) (*Report, error) {
	if r == nil {
		return nil, fmt.Errorf("runtime is nil")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.Shutdown(shutdownCtx); err != nil {
			r.obs.LogError("runtime_shutdown_failed", err)
		}
	}()

	r.startMetrics()

	w, err := workflow.New(r.cfg, r.connector, r.obs, r.out, workflow.WithSinks(r.sinks...))
	if err != nil {
		return nil, err
	}
	report, runErr := w.Run(ctx)
	r.push(ctx)
	return report, runErr
}

// Shutdown stops the metrics server and closes the OPC UA session and DB pool.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var errs []error

	if r.metricsSrv != nil {
		if err := r.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
		r.metricsSrv = nil
	}
	if r.opcua != nil {
		if err := r.opcua.Close(ctx); err != nil {
			errs = append(errs, err)
		}
		r.opcua = nil
	}
	if err := r.closeDB(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Sinks lists the mirrors the runtime will write to besides console and file.
func (r *Runtime) Sinks() []Sink {
	return append([]Sink(nil), r.sinks...)
}

func (r *Runtime) closeDB() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *Runtime) startMetrics() {
	if r.prom == nil || r.cfg.Metrics.Addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.prom.Registry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.metricsSrv = &http.Server{
		Addr:              r.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	srv := r.metricsSrv
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server exited: %v", err)
		}
	}()
}

func (r *Runtime) push(ctx context.Context) {
	if r.prom == nil || r.cfg.Metrics.PushURL == "" {
		return
	}
	if err := r.prom.Push(ctx, r.cfg.Metrics.PushURL, r.cfg.Metrics.Job); err != nil {
		r.obs.LogError("metrics_push_failed", err, ports.Field{Key: "url", Value: r.cfg.Metrics.PushURL})
	}
}
