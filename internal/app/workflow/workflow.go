package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/NominalSystems/go-nominal-example/internal/adapters/sink"
	"github.com/NominalSystems/go-nominal-example/internal/app/config"
	"github.com/NominalSystems/go-nominal-example/internal/app/export"
	"github.com/NominalSystems/go-nominal-example/internal/app/scenario"
	"github.com/NominalSystems/go-nominal-example/internal/app/stepper"
	"github.com/NominalSystems/go-nominal-example/internal/domain"
	"github.com/NominalSystems/go-nominal-example/internal/ports"
)

// Report summarises a finished run.
type Report struct {
	Graph         *scenario.Graph
	Subscriptions scenario.Subscriptions
	SimTime       float64
	OutputDir     string
}

// Workflow runs credential resolution, session setup, scenario configuration,
// subscription, stepping and export strictly in that order.
type Workflow struct {
	cfg       *config.Config
	connector ports.Connector
	obs       ports.Observability
	out       io.Writer
	sinks     []ports.Sink
}

type Option func(*Workflow)

// WithSinks mirrors exported series into additional sinks.
func WithSinks(sinks ...ports.Sink) Option {
	return func(w *Workflow) {
		w.sinks = append(w.sinks, sinks...)
	}
}

func New(cfg *config.Config, connector ports.Connector, obs ports.Observability, out io.Writer, opts ...Option) (*Workflow, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if connector == nil {
		return nil, errors.New("connector is required")
	}
	if obs == nil {
		return nil, errors.New("observability is required")
	}
	if out == nil {
		return nil, errors.New("output writer is required")
	}
	w := &Workflow{cfg: cfg, connector: connector, obs: obs, out: out}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w, nil
}

// Run executes the workflow once. Fatal errors stop it immediately; export
// write failures are returned only after "Simulation Complete" is printed, so
// callers should classify the result with domain.IsFatal.
func (w *Workflow) Run(ctx context.Context) (*Report, error) {
	cfg := w.cfg

	env, err := cfg.ResolveEnvironment()
	if err != nil {
		w.println(cfg.API.KeyEnv + " Environment Variable not set.")
		return nil, w.fatal("resolve_credentials", err)
	}
	w.println("Nominal API Key Imported")

	sim, err := w.connector.Connect(ctx, cfg.Credentials(env))
	if err != nil {
		if !errors.Is(err, domain.ErrConnectionFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrConnectionFailed, err)
		}
		return nil, w.fatal("connect", err)
	}
	w.println("Connected to Nominal API")

	w.println("Configuring the Simulation")
	graph, err := scenario.Configure(ctx, sim, cfg.Scenario, w.obs)
	if err != nil {
		return nil, w.fatal("configure", err)
	}

	st, err := stepper.New(sim, stepper.Config{
		StepSize:   cfg.Run.TickSize,
		Iterations: cfg.Run.TickIterations,
		Chunks:     cfg.Run.Chunks,
	}, stepper.WithProgress(func(percent int) {
		fmt.Fprintf(w.out, "Percentage Progress: %d\n", percent)
	}))
	if err != nil {
		return nil, w.fatal("stepper", fmt.Errorf("%w: %w", domain.ErrSimulationStepFailed, err))
	}

	subs, err := scenario.Subscribe(ctx, sim, graph, Channels(cfg.Export.Channels), cfg.Run.SampleRate, st)
	if err != nil {
		return nil, w.fatal("subscribe", err)
	}
	w.println("Simulation Configured")

	fmt.Fprintf(w.out, "Tick the simulation for: %d steps with a step size of %s ( %s seconds )\n",
		cfg.Run.TickIterations,
		sink.FormatFloat(cfg.Run.TickSize),
		sink.FormatFloat(cfg.Run.TickSize*float64(cfg.Run.TickIterations)))
	if err := st.Run(ctx); err != nil {
		return nil, w.fatal("tick", err)
	}
	w.obs.LogInfo("simulation_stepped",
		ports.Field{Key: "iterations", Value: st.IterationsDone()},
		ports.Field{Key: "sim_time", Value: st.Elapsed()})

	exporter, err := export.New(sim, w.out, w.obs, export.WithSinks(w.sinks...))
	if err != nil {
		return nil, w.fatal("export", err)
	}
	exportErr := exporter.Export(ctx, subs, cfg.Export.Channels, env.OutputDir)
	if domain.IsFatal(exportErr) {
		return nil, w.fatal("export", exportErr)
	}

	w.println("Simulation Complete")
	return &Report{
		Graph:         graph,
		Subscriptions: subs,
		SimTime:       st.Elapsed(),
		OutputDir:     env.OutputDir,
	}, exportErr
}

// Channels returns the recorded channels plus any export channel that is not
// already among them.
func Channels(exports []export.Channel) []scenario.Channel {
	out := append([]scenario.Channel(nil), scenario.RecordedChannels...)
	seen := make(map[string]bool, len(out))
	for _, ch := range out {
		seen[ch.Key()] = true
	}
	for _, ex := range exports {
		ch := scenario.Channel{Component: ex.Component, Message: ex.Message}
		if !seen[ch.Key()] {
			seen[ch.Key()] = true
			out = append(out, ch)
		}
	}
	return out
}

func (w *Workflow) println(line string) {
	fmt.Fprintln(w.out, line)
}

func (w *Workflow) fatal(stage string, err error) error {
	w.obs.LogCritical("workflow_failed", err, ports.Field{Key: "stage", Value: stage})
	return err
}
