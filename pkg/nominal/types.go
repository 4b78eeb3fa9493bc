package nominal

import (
	"github.com/NominalSystems/go-nominal-example/internal/app/export"
	"github.com/NominalSystems/go-nominal-example/internal/app/workflow"
	"github.com/NominalSystems/go-nominal-example/internal/domain"
	"github.com/NominalSystems/go-nominal-example/internal/ports"
)

// Connector opens a simulation session against an engine.
type Connector = ports.Connector

// Simulation is the per-session engine surface used by the workflow.
type Simulation = ports.Simulation

// Sink receives every exported series. Implement it to mirror telemetry into
// any database or API.
type Sink = ports.Sink

// Observability is the logging and metrics surface.
type Observability = ports.Observability

// Field is a structured log attribute.
type Field = ports.Field

type (
	Sample      = domain.Sample
	Series      = domain.Series
	Handle      = domain.Handle
	Value       = domain.Value
	Params      = domain.Params
	Credentials = domain.Credentials
	Environment = domain.Environment
	Channel     = export.Channel
)

// Report summarises a completed run.
type Report = workflow.Report

var (
	ErrMissingCredential          = domain.ErrMissingCredential
	ErrConnectionFailed           = domain.ErrConnectionFailed
	ErrConfigurationRequestFailed = domain.ErrConfigurationRequestFailed
	ErrSimulationStepFailed       = domain.ErrSimulationStepFailed
	ErrTelemetryFetchFailed       = domain.ErrTelemetryFetchFailed
	ErrExportWriteFailed          = domain.ErrExportWriteFailed
)

// IsFatal reports whether err should abort the process.
func IsFatal(err error) bool { return domain.IsFatal(err) }
