package stepper

import (
	"context"
	"errors"
	"fmt"

	"github.com/NominalSystems/go-nominal-example/internal/domain"
)

type State int

const (
	Idle State = iota
	Running
	Complete
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Complete:
		return "complete"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Ticker advances the engine by iterations fixed-size steps.
type Ticker interface {
	Tick(ctx context.Context, step float64, iterations int) error
}

type Config struct {
	StepSize   float64
	Iterations int
	Chunks     int
}

func (c Config) validate() error {
	if c.StepSize <= 0 {
		return fmt.Errorf("step size must be > 0, got %g", c.StepSize)
	}
	if c.Iterations <= 0 {
		return fmt.Errorf("iterations must be > 0, got %d", c.Iterations)
	}
	if c.Chunks <= 0 || c.Chunks > c.Iterations {
		return fmt.Errorf("chunks must be in [1, %d], got %d", c.Iterations, c.Chunks)
	}
	return nil
}

// Duration is the total simulated time the configuration covers.
func (c Config) Duration() float64 { return c.StepSize * float64(c.Iterations) }

// ProgressFunc receives the percentage of macro-steps completed.
type ProgressFunc func(percent int)

var ErrComplete = errors.New("stepper: simulation already complete")

// Stepper runs the tick loop as a fixed number of macro-steps.
type Stepper struct {
	ticker   Ticker
	cfg      Config
	chunks   []int
	state    State
	done     int
	progress ProgressFunc
}

type Option func(*Stepper)

func WithProgress(fn ProgressFunc) Option {
	return func(s *Stepper) {
		s.progress = fn
	}
}

func New(t Ticker, cfg Config, opts ...Option) (*Stepper, error) {
	if t == nil {
		return nil, errors.New("ticker is required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	s := &Stepper{
		ticker: t,
		cfg:    cfg,
		chunks: ChunkSizes(cfg.Iterations, cfg.Chunks),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func (s *Stepper) State() State { return s.state }

// Started implements scenario.Clock.
func (s *Stepper) Started() bool { return s.state != Idle }

// Elapsed is the simulated time covered by completed iterations. It is derived
// from the iteration count so chunking never accumulates rounding error.
func (s *Stepper) Elapsed() float64 { return s.cfg.StepSize * float64(s.done) }

func (s *Stepper) IterationsDone() int { return s.done }

// Run performs every macro-step. A failed tick leaves the stepper Running;
// the engine owns the stepped state and there is nothing to roll back.
func (s *Stepper) Run(ctx context.Context) error {
	switch s.state {
	case Complete:
		return ErrComplete
	case Running:
		return fmt.Errorf("%w: stepper halted after a failed tick", domain.ErrSimulationStepFailed)
	}
	s.state = Running

	for i, n := range s.chunks {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrSimulationStepFailed, err)
		}
		if err := s.ticker.Tick(ctx, s.cfg.StepSize, n); err != nil {
			return fmt.Errorf("%w: macro-step %d/%d: %w", domain.ErrSimulationStepFailed, i+1, len(s.chunks), err)
		}
		s.done += n
		if s.progress != nil {
			s.progress(100 * (i + 1) / len(s.chunks))
		}
	}

	s.state = Complete
	return nil
}

// ChunkSizes splits total iterations into n macro-steps whose sum is exactly
// total; the remainder goes to the first macro-steps.
func ChunkSizes(total, n int) []int {
	if n <= 0 || total <= 0 {
		return nil
	}
	base, rem := total/n, total%n
	out := make([]int, n)
	for i := range out {
		out[i] = base
		if i < rem {
			out[i]++
		}
	}
	return out
}
