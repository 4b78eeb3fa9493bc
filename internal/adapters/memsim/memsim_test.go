package memsim

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/NominalSystems/go-nominal-example/internal/domain"
)

func connect(t *testing.T, opts ...Option) *Simulation {
	t.Helper()
	sim, err := New(opts...).Connect(context.Background(), domain.Credentials{URL: "mem://", APIKey: "key"})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	return sim.(*Simulation)
}

func TestConnectRequiresKey(t *testing.T) {
	_, err := New().Connect(context.Background(), domain.Credentials{})
	if !errors.Is(err, domain.ErrConnectionFailed) {
		t.Fatalf("expected ErrConnectionFailed, got %v", err)
	}
}

func TestConnectError(t *testing.T) {
	boom := errors.New("unreachable")
	_, err := New(WithConnectError(boom)).Connect(context.Background(), domain.Credentials{APIKey: "k"})
	if !errors.Is(err, domain.ErrConnectionFailed) || !errors.Is(err, boom) {
		t.Fatalf("expected wrapped connect error, got %v", err)
	}
}

func TestAddComponentRejectsUnknownReferences(t *testing.T) {
	ctx := context.Background()
	sim := connect(t)

	if _, err := sim.AddComponent(ctx, "SolarPanel", "missing", nil); err == nil {
		t.Fatalf("expected unknown parent to be rejected")
	}

	sc, err := sim.AddComponent(ctx, "Spacecraft", "", nil)
	if err != nil {
		t.Fatalf("add spacecraft: %v", err)
	}
	_, err = sim.AddComponent(ctx, "SimpleNavigator", sc, domain.Params{{Name: "In_Msg", Value: domain.Ref("nope")}})
	if err == nil {
		t.Fatalf("expected dangling reference to be rejected")
	}
}

func TestOutputsAreCreatedOnDemand(t *testing.T) {
	ctx := context.Background()
	sim := connect(t)
	nav, err := sim.AddComponent(ctx, "SimpleNavigator", "", nil)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	v, err := sim.GetValue(ctx, nav, "Out_NavAttMsg")
	if err != nil {
		t.Fatalf("get value: %v", err)
	}
	ref, ok := v.AsRef()
	if !ok {
		t.Fatalf("expected reference, got %s", v.Kind())
	}
	msg, err := sim.GetMessage(ctx, nav, "Out_NavAttMsg")
	if err != nil {
		t.Fatalf("get message: %v", err)
	}
	if msg != ref {
		t.Fatalf("expected the same message handle, got %s and %s", ref, msg)
	}

	if _, err := sim.GetValue(ctx, nav, "Unknown"); err == nil {
		t.Fatalf("expected error for unknown value")
	}
	if err := sim.SetValue(ctx, nav, "Out_NavAttMsg", domain.Scalar(1)); err == nil {
		t.Fatalf("expected outputs to be read-only")
	}
}

func TestDefaultsAndOverrides(t *testing.T) {
	ctx := context.Background()
	sim := connect(t, WithDefault("SolarPanel", "LocalUp", domain.Vector(0, 0, 1)))
	panel, err := sim.AddComponent(ctx, "SolarPanel", "", domain.Params{{Name: "Area", Value: domain.Scalar(2)}})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	v, err := sim.GetValue(ctx, panel, "LocalUp")
	if err != nil {
		t.Fatalf("get local up: %v", err)
	}
	if vec, _ := v.AsVector(); vec != [3]float64{0, 0, 1} {
		t.Fatalf("unexpected local up %v", vec)
	}
	if err := sim.SetValue(ctx, panel, "Area", domain.Scalar(3)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, _ := sim.Value(panel, "Area"); v.String() != domain.Scalar(3).String() {
		t.Fatalf("expected overridden area, got %s", v)
	}
}

func TestTickRecordsSubscribedMessages(t *testing.T) {
	ctx := context.Background()
	sim := connect(t, WithProbe("SolarPanel", "Out_PowerSourceMsg", SolarPanelPower))
	panel, err := sim.AddComponent(ctx, "SolarPanel", "", domain.Params{
		{Name: "Area", Value: domain.Scalar(1)},
		{Name: "Efficiency", Value: domain.Scalar(0.5)},
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	msg, err := sim.GetMessage(ctx, panel, "Out_PowerSourceMsg")
	if err != nil {
		t.Fatalf("message: %v", err)
	}
	if err := sim.Subscribe(ctx, msg, 5); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	for i := 0; i < 10; i++ {
		if err := sim.Tick(ctx, 0.05, 200); err != nil {
			t.Fatalf("tick: %v", err)
		}
	}

	samples, err := sim.Fetch(ctx, msg, "Power")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(samples) != 20 {
		t.Fatalf("expected 20 samples over 100s at 5s, got %d", len(samples))
	}
	v, ok := samples[0].Field("Power")
	if !ok || v.(float64) != 0.5*SolarConstant {
		t.Fatalf("unexpected power %v", v)
	}
	if _, ok := samples[0].Field("Voltage"); ok {
		t.Fatalf("fetch should only return the requested field")
	}

	if err := sim.Subscribe(ctx, msg, 5); err == nil {
		t.Fatalf("expected subscribe after tick to fail")
	}
}

func TestUnsubscribedMessagesRecordNothing(t *testing.T) {
	ctx := context.Background()
	sim := connect(t)
	sc, _ := sim.AddComponent(ctx, "Spacecraft", "", nil)
	msg, _ := sim.GetMessage(ctx, sc, "Out_EclipseMsg")
	if err := sim.Tick(ctx, 1, 10); err != nil {
		t.Fatalf("tick: %v", err)
	}
	samples, err := sim.Fetch(ctx, msg, "Eclipse")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(samples) != 0 {
		t.Fatalf("expected no samples, got %d", len(samples))
	}
	if sim.Elapsed() != 10 {
		t.Fatalf("expected 10s elapsed, got %v", sim.Elapsed())
	}
}

func TestFailureInjection(t *testing.T) {
	boom := errors.New("engine down")
	sim := connect(t, WithFailure("tick", boom))
	if err := sim.Tick(context.Background(), 1, 1); !errors.Is(err, boom) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	reqs := sim.Requests()
	if len(reqs) != 1 || reqs[0].Op != "tick" {
		t.Fatalf("expected the failed tick to be logged, got %+v", reqs)
	}
}

func TestSessionsGetDistinctIDs(t *testing.T) {
	c := New()
	creds := domain.Credentials{URL: "mem://", APIKey: "key"}
	for i := 0; i < 2; i++ {
		if _, err := c.Connect(context.Background(), creds); err != nil {
			t.Fatalf("connect: %v", err)
		}
	}
	sims := c.Sessions()
	if len(sims) != 2 || sims[0].ID() == sims[1].ID() {
		t.Fatalf("expected two distinct sessions, got %d", len(sims))
	}
	if _, err := uuid.Parse(sims[0].ID()); err != nil {
		t.Fatalf("session id %q: %v", sims[0].ID(), err)
	}
}
