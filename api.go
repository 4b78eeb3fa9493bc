package nominal

import (
	base "github.com/NominalSystems/go-nominal-example/pkg/nominal"
)

// Re-exported errors for convenience.
var (
	ErrMissingCredential          = base.ErrMissingCredential
	ErrConnectionFailed           = base.ErrConnectionFailed
	ErrConfigurationRequestFailed = base.ErrConfigurationRequestFailed
	ErrSimulationStepFailed       = base.ErrSimulationStepFailed
	ErrTelemetryFetchFailed       = base.ErrTelemetryFetchFailed
	ErrExportWriteFailed          = base.ErrExportWriteFailed
	ErrChannelSinkClosed          = base.ErrChannelSinkClosed
)

// Type aliases so consumers can import github.com/NominalSystems/go-nominal-example directly.
type (
	Config          = base.Config
	APIConfig       = base.APIConfig
	RunConfig       = base.RunConfig
	ExportConfig    = base.ExportConfig
	TimescaleConfig = base.TimescaleConfig
	MetricsConfig   = base.MetricsConfig
	Flow            = base.Flow
	FlowOption      = base.FlowOption
	Runtime         = base.Runtime
	RuntimeOption   = base.RuntimeOption
	Report          = base.Report
	Sample          = base.Sample
	Series          = base.Series
	SeriesFunc      = base.SeriesFunc
	Channel         = base.Channel
	Connector       = base.Connector
	Simulation      = base.Simulation
	Sink            = base.Sink
	Observability   = base.Observability
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

func DefaultConfig() *Config {
	return base.DefaultConfig()
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...RuntimeOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func OnSeries(name string, fn SeriesFunc) FlowOption {
	return base.OnSeries(name, fn)
}

func DryRun() FlowOption {
	return base.DryRun()
}

// Runtime and options.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

func WithConnector(c Connector) RuntimeOption {
	return base.WithConnector(c)
}

func WithSink(s Sink) RuntimeOption {
	return base.WithSink(s)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}

func WithDryRun() RuntimeOption {
	return base.WithDryRun()
}

func DryRunConnector() Connector {
	return base.DryRunConnector()
}

func IsFatal(err error) bool {
	return base.IsFatal(err)
}

// Sink adapters.
func NewCallbackSink(name string, fn SeriesFunc) Sink {
	return base.NewCallbackSink(name, fn)
}

func NewChannelSink(name string, buffer int) (Sink, <-chan *Series, func()) {
	return base.NewChannelSink(name, buffer)
}
