package stepper

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/NominalSystems/go-nominal-example/internal/domain"
)

type recordingTicker struct {
	calls  []int
	failAt int
	err    error
}

func (r *recordingTicker) Tick(_ context.Context, _ float64, iterations int) error {
	r.calls = append(r.calls, iterations)
	if r.err != nil && len(r.calls) == r.failAt {
		return r.err
	}
	return nil
}

func TestRunReferenceConfig(t *testing.T) {
	ticker := &recordingTicker{}
	var progress []int
	s, err := New(ticker, Config{StepSize: 0.05, Iterations: 2000, Chunks: 10}, WithProgress(func(p int) {
		progress = append(progress, p)
	}))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if s.State() != Idle || s.Started() {
		t.Fatalf("expected idle stepper, got %s", s.State())
	}

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if s.State() != Complete {
		t.Fatalf("expected complete, got %s", s.State())
	}
	if s.Elapsed() != 100.0 {
		t.Fatalf("expected 100.0 simulated seconds, got %v", s.Elapsed())
	}
	if s.IterationsDone() != 2000 {
		t.Fatalf("expected 2000 iterations, got %d", s.IterationsDone())
	}
	if len(ticker.calls) != 10 {
		t.Fatalf("expected 10 macro-steps, got %d", len(ticker.calls))
	}
	for _, n := range ticker.calls {
		if n != 200 {
			t.Fatalf("expected 200 iterations per macro-step, got %v", ticker.calls)
		}
	}
	want := []int{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	if !reflect.DeepEqual(progress, want) {
		t.Fatalf("unexpected progress %v", progress)
	}

	if err := s.Run(context.Background()); !errors.Is(err, ErrComplete) {
		t.Fatalf("expected ErrComplete on second run, got %v", err)
	}
}

func TestRunUnevenChunks(t *testing.T) {
	ticker := &recordingTicker{}
	s, err := New(ticker, Config{StepSize: 1, Iterations: 7, Chunks: 3})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !reflect.DeepEqual(ticker.calls, []int{3, 2, 2}) {
		t.Fatalf("expected ticks 3,2,2 got %v", ticker.calls)
	}
	if s.Elapsed() != 7 {
		t.Fatalf("expected 7s, got %v", s.Elapsed())
	}
}

func TestRunTickFailureHalts(t *testing.T) {
	boom := errors.New("engine gone")
	ticker := &recordingTicker{failAt: 3, err: boom}
	s, err := New(ticker, Config{StepSize: 0.05, Iterations: 2000, Chunks: 10})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	err = s.Run(context.Background())
	if !errors.Is(err, domain.ErrSimulationStepFailed) || !errors.Is(err, boom) {
		t.Fatalf("expected wrapped step failure, got %v", err)
	}
	if s.State() != Running {
		t.Fatalf("expected stepper to stay running, got %s", s.State())
	}
	if s.IterationsDone() != 400 {
		t.Fatalf("expected 400 completed iterations, got %d", s.IterationsDone())
	}

	err = s.Run(context.Background())
	if !errors.Is(err, domain.ErrSimulationStepFailed) {
		t.Fatalf("expected halted stepper to refuse to run, got %v", err)
	}
	if len(ticker.calls) != 3 {
		t.Fatalf("expected no further ticks, got %d", len(ticker.calls))
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ticker := &recordingTicker{}
	s, _ := New(ticker, Config{StepSize: 1, Iterations: 10, Chunks: 2})
	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(ticker.calls) != 0 {
		t.Fatalf("expected no ticks, got %v", ticker.calls)
	}
}

func TestNewValidates(t *testing.T) {
	cases := []Config{
		{StepSize: 0, Iterations: 10, Chunks: 1},
		{StepSize: 1, Iterations: 0, Chunks: 1},
		{StepSize: 1, Iterations: 3, Chunks: 4},
		{StepSize: 1, Iterations: 3, Chunks: 0},
	}
	for _, cfg := range cases {
		if _, err := New(&recordingTicker{}, cfg); err == nil {
			t.Fatalf("expected error for %+v", cfg)
		}
	}
	if _, err := New(nil, Config{StepSize: 1, Iterations: 1, Chunks: 1}); err == nil {
		t.Fatalf("expected error for nil ticker")
	}
}

func TestChunkSizes(t *testing.T) {
	for _, c := range []struct{ total, n int }{{2000, 10}, {7, 3}, {1, 1}, {11, 4}} {
		sizes := ChunkSizes(c.total, c.n)
		if len(sizes) != c.n {
			t.Fatalf("expected %d chunks, got %v", c.n, sizes)
		}
		sum := 0
		for _, s := range sizes {
			sum += s
		}
		if sum != c.total {
			t.Fatalf("chunks %v do not sum to %d", sizes, c.total)
		}
	}
	if ChunkSizes(5, 0) != nil {
		t.Fatalf("expected nil for zero chunks")
	}
}
