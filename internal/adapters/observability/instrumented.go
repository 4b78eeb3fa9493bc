package observability

import (
	"context"
	"time"

	"github.com/NominalSystems/go-nominal-example/internal/domain"
	"github.com/NominalSystems/go-nominal-example/internal/ports"
)

// InstrumentConnector counts, times and logs every engine request made
// through sessions opened by next.
func InstrumentConnector(next ports.Connector, obs ports.Observability) ports.Connector {
	return &connector{next: next, obs: obs}
}

type connector struct {
	next ports.Connector
	obs  ports.Observability
}

func (c *connector) Connect(ctx context.Context, creds domain.Credentials) (ports.Simulation, error) {
	start := time.Now()
	sim, err := c.next.Connect(ctx, creds)
	record(c.obs, "connect", start, err)
	if err != nil {
		return nil, err
	}
	return &simulation{next: sim, obs: c.obs}, nil
}

type simulation struct {
	next    ports.Simulation
	obs     ports.Observability
	elapsed float64
}

func (s *simulation) GetSystem(ctx context.Context, tag string, params domain.Params) (domain.Handle, error) {
	start := time.Now()
	h, err := s.next.GetSystem(ctx, tag, params)
	record(s.obs, "get_system", start, err)
	return h, err
}

func (s *simulation) AddComponent(ctx context.Context, tag string, parent domain.Handle, params domain.Params) (domain.Handle, error) {
	start := time.Now()
	h, err := s.next.AddComponent(ctx, tag, parent, params)
	record(s.obs, "add_component", start, err)
	return h, err
}

func (s *simulation) GetValue(ctx context.Context, h domain.Handle, name string) (domain.Value, error) {
	start := time.Now()
	v, err := s.next.GetValue(ctx, h, name)
	record(s.obs, "get_value", start, err)
	return v, err
}

func (s *simulation) SetValue(ctx context.Context, h domain.Handle, name string, v domain.Value) error {
	start := time.Now()
	err := s.next.SetValue(ctx, h, name, v)
	record(s.obs, "set_value", start, err)
	return err
}

func (s *simulation) GetMessage(ctx context.Context, h domain.Handle, name string) (domain.Handle, error) {
	start := time.Now()
	msg, err := s.next.GetMessage(ctx, h, name)
	record(s.obs, "get_message", start, err)
	return msg, err
}

func (s *simulation) Subscribe(ctx context.Context, msg domain.Handle, rate float64) error {
	start := time.Now()
	err := s.next.Subscribe(ctx, msg, rate)
	record(s.obs, "subscribe", start, err)
	return err
}

func (s *simulation) Tick(ctx context.Context, step float64, iterations int) error {
	start := time.Now()
	err := s.next.Tick(ctx, step, iterations)
	record(s.obs, "tick", start, err)
	if err == nil {
		s.elapsed += step * float64(iterations)
		s.obs.SetGauge("nominal_sim_time_seconds", s.elapsed)
	}
	return err
}

func (s *simulation) Fetch(ctx context.Context, msg domain.Handle, field string) ([]domain.Sample, error) {
	start := time.Now()
	samples, err := s.next.Fetch(ctx, msg, field)
	record(s.obs, "fetch", start, err)
	return samples, err
}

func record(obs ports.Observability, op string, start time.Time, err error) {
	obs.IncCounter("nominal_engine_requests_total", 1, op)
	obs.ObserveLatency("nominal_engine_request_latency_seconds", time.Since(start).Seconds(), op)
	if err != nil {
		obs.IncCounter("nominal_engine_request_failures_total", 1, op)
		obs.LogError("engine_request_failed", err, ports.Field{Key: "op", Value: op})
	}
}

var (
	_ ports.Connector  = (*connector)(nil)
	_ ports.Simulation = (*simulation)(nil)
)
