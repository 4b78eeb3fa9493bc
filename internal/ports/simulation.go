package ports

import (
	"context"

	"github.com/NominalSystems/go-nominal-example/internal/domain"
)

// Connector opens an authenticated session against a simulation engine.
type Connector interface {
	Connect(ctx context.Context, creds domain.Credentials) (Simulation, error)
}

// Simulation is the request/response contract of the external engine. All
// handles returned by it are owned by the session.
type Simulation interface {
	GetSystem(ctx context.Context, tag string, params domain.Params) (domain.Handle, error)
	AddComponent(ctx context.Context, tag string, parent domain.Handle, params domain.Params) (domain.Handle, error)
	GetValue(ctx context.Context, h domain.Handle, name string) (domain.Value, error)
	SetValue(ctx context.Context, h domain.Handle, name string, v domain.Value) error
	GetMessage(ctx context.Context, h domain.Handle, name string) (domain.Handle, error)
	Subscribe(ctx context.Context, msg domain.Handle, rate float64) error
	Tick(ctx context.Context, step float64, iterations int) error
	Fetch(ctx context.Context, msg domain.Handle, field string) ([]domain.Sample, error)
}
