package domain

import "errors"

// Workflow error taxonomy. Everything except ErrExportWriteFailed aborts the run.
var (
	ErrMissingCredential          = errors.New("nominal: missing credential")
	ErrConnectionFailed           = errors.New("nominal: connection failed")
	ErrConfigurationRequestFailed = errors.New("nominal: configuration request failed")
	ErrSimulationStepFailed       = errors.New("nominal: simulation step failed")
	ErrTelemetryFetchFailed       = errors.New("nominal: telemetry fetch failed")
	ErrExportWriteFailed          = errors.New("nominal: export write failed")
)

// IsFatal reports whether err must stop the workflow.
func IsFatal(err error) bool {
	return err != nil && !errors.Is(err, ErrExportWriteFailed)
}
