package export

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/NominalSystems/go-nominal-example/internal/adapters/sink"
	"github.com/NominalSystems/go-nominal-example/internal/app/scenario"
	"github.com/NominalSystems/go-nominal-example/internal/domain"
	"github.com/NominalSystems/go-nominal-example/internal/ports"
)

// Channel selects one field of one subscribed message for export.
type Channel struct {
	Component string `yaml:"component"`
	Message   string `yaml:"message"`
	Field     string `yaml:"field"`
}

func (c Channel) String() string { return scenario.Key(c.Component, c.Message) + "." + c.Field }

// DefaultChannels exports the solar panel power history.
var DefaultChannels = []Channel{
	{Component: scenario.ComponentSolarPanel, Message: scenario.OutPowerSource, Field: "Power"},
}

// Fetcher retrieves the recorded history of a message field.
type Fetcher interface {
	Fetch(ctx context.Context, msg domain.Handle, field string) ([]domain.Sample, error)
}

// Exporter writes fetched series to the output directory, prints the
// [[RESULT]] lines and mirrors the series into any extra sinks.
type Exporter struct {
	fetcher Fetcher
	out     io.Writer
	obs     ports.Observability
	console ports.Sink
	sinks   []ports.Sink
	newFile func(dir string) ports.Sink
}

type Option func(*Exporter)

// WithSinks mirrors every exported series into additional sinks.
func WithSinks(sinks ...ports.Sink) Option {
	return func(e *Exporter) {
		for _, s := range sinks {
			if s != nil {
				e.sinks = append(e.sinks, s)
			}
		}
	}
}

// WithFileSink replaces the file sink constructor.
func WithFileSink(fn func(dir string) ports.Sink) Option {
	return func(e *Exporter) {
		if fn != nil {
			e.newFile = fn
		}
	}
}

func New(f Fetcher, out io.Writer, obs ports.Observability, opts ...Option) (*Exporter, error) {
	if f == nil {
		return nil, errors.New("fetcher is required")
	}
	if out == nil {
		return nil, errors.New("output writer is required")
	}
	if obs == nil {
		return nil, errors.New("observability is required")
	}
	e := &Exporter{
		fetcher: f,
		out:     out,
		obs:     obs,
		console: sink.NewConsoleSink(out, obs),
		newFile: func(dir string) ports.Sink { return sink.NewFileSink(dir) },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e, nil
}

// Export processes each channel in order. Fetch failures abort the export;
// write failures are reported, counted and returned joined as
// domain.ErrExportWriteFailed once every channel has been handled.
func (e *Exporter) Export(ctx context.Context, subs scenario.Subscriptions, channels []Channel, outputDir string) error {
	fmt.Fprintln(e.out, "Exporting data")

	var writeErrs []error
	for _, ch := range channels {
		msg, ok := subs.Lookup(ch.Component, ch.Message)
		if !ok {
			return fmt.Errorf("%w: %s is not subscribed", domain.ErrTelemetryFetchFailed, ch)
		}
		samples, err := e.fetcher.Fetch(ctx, msg, ch.Field)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", domain.ErrTelemetryFetchFailed, ch, err)
		}
		series := &domain.Series{
			Component: ch.Component,
			Message:   ch.Message,
			Field:     ch.Field,
			Samples:   samples,
		}

		if outputDir == "" {
			fmt.Fprintln(e.out, "OUTPUT_PATH Environment variable not set.")
		} else if err := e.newFile(outputDir).WriteSeries(ctx, series); err != nil {
			fmt.Fprintln(e.out, "Error writing data to file")
			writeErrs = append(writeErrs, e.writeFailed("file", ch, err))
		} else {
			fmt.Fprintf(e.out, "%s Data exported\n", ch.Field)
		}

		if err := e.console.WriteSeries(ctx, series); err != nil {
			return err
		}

		for _, s := range e.sinks {
			if err := s.WriteSeries(ctx, series); err != nil {
				writeErrs = append(writeErrs, e.writeFailed(s.Name(), ch, err))
			}
		}
	}
	return errors.Join(writeErrs...)
}

func (e *Exporter) writeFailed(sinkName string, ch Channel, err error) error {
	e.obs.IncCounter("nominal_export_failures_total", 1, sinkName)
	e.obs.LogError("export_write_failed", err,
		ports.Field{Key: "sink", Value: sinkName},
		ports.Field{Key: "channel", Value: ch.String()})
	return fmt.Errorf("%w: %s sink: %s: %w", domain.ErrExportWriteFailed, sinkName, ch, err)
}
