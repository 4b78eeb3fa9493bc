package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/NominalSystems/go-nominal-example/internal/app/scenario"
	"github.com/NominalSystems/go-nominal-example/internal/domain"
	"github.com/NominalSystems/go-nominal-example/internal/ports"
)

type stubFetcher struct {
	samples map[domain.Handle][]domain.Sample
	err     error
}

func (f *stubFetcher) Fetch(_ context.Context, msg domain.Handle, _ string) ([]domain.Sample, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.samples[msg], nil
}

type stubObs struct {
	counters map[string]float64
	errors   []string
}

func (s *stubObs) LogInfo(string, ...ports.Field) {}
func (s *stubObs) LogWarn(string, ...ports.Field) {}
func (s *stubObs) LogError(msg string, _ error, _ ...ports.Field) {
	s.errors = append(s.errors, msg)
}
func (s *stubObs) LogCritical(string, error, ...ports.Field) {}
func (s *stubObs) ObserveLatency(string, float64, ...string) {}
func (s *stubObs) SetGauge(string, float64) {}
func (s *stubObs) IncCounter(name string, v float64, labels ...string) {
	if s.counters == nil {
		s.counters = map[string]float64{}
	}
	s.counters[name+"/"+strings.Join(labels, ",")] += v
}

type failingSink struct{ err error }

func (f *failingSink) Name() string { return "broken" }
func (f *failingSink) WriteSeries(context.Context, *domain.Series) error {
	return f.err
}

type collectingSink struct{ series []*domain.Series }

func (c *collectingSink) Name() string { return "collect" }
func (c *collectingSink) WriteSeries(_ context.Context, s *domain.Series) error {
	c.series = append(c.series, s)
	return nil
}

func f64(v float64) *float64 { return &v }

func powerFixture() (scenario.Subscriptions, *stubFetcher) {
	subs := scenario.Subscriptions{
		scenario.Key(scenario.ComponentSolarPanel, scenario.OutPowerSource): "msg-power",
	}
	fetcher := &stubFetcher{samples: map[domain.Handle][]domain.Sample{
		"msg-power": {
			{Time: f64(12.5), Data: map[string]any{"Power": json.Number("3.7")}},
			{Time: nil, Data: map[string]any{"Power": json.Number("1")}},
			{Time: f64(13), Data: map[string]any{}},
		},
	}}
	return subs, fetcher
}

func TestExportWritesFileAndResults(t *testing.T) {
	dir := t.TempDir()
	subs, fetcher := powerFixture()
	var out bytes.Buffer
	collect := &collectingSink{}

	e, err := New(fetcher, &out, &stubObs{}, WithSinks(collect))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := e.Export(context.Background(), subs, DefaultChannels, dir); err != nil {
		t.Fatalf("export: %v", err)
	}

	want := "Exporting data\nPower Data exported\n[[RESULT]] Power|3.7|12.5\n"
	if out.String() != want {
		t.Fatalf("unexpected output:\n%q\nwant:\n%q", out.String(), want)
	}
	if _, err := os.Stat(filepath.Join(dir, "Data_solar_panel_Power.txt")); err != nil {
		t.Fatalf("expected export file: %v", err)
	}
	if len(collect.series) != 1 || collect.series[0].Len() != 3 {
		t.Fatalf("expected the full series mirrored, got %+v", collect.series)
	}
}

func TestExportWithoutOutputDir(t *testing.T) {
	subs, fetcher := powerFixture()
	var out bytes.Buffer
	e, _ := New(fetcher, &out, &stubObs{})

	if err := e.Export(context.Background(), subs, DefaultChannels, ""); err != nil {
		t.Fatalf("export: %v", err)
	}
	want := "Exporting data\nOUTPUT_PATH Environment variable not set.\n[[RESULT]] Power|3.7|12.5\n"
	if out.String() != want {
		t.Fatalf("unexpected output:\n%q\nwant:\n%q", out.String(), want)
	}
}

func TestExportWriteFailureIsNonFatal(t *testing.T) {
	subs, fetcher := powerFixture()
	var out bytes.Buffer
	obs := &stubObs{}
	broken := errors.New("disk full")
	e, _ := New(fetcher, &out, obs, WithSinks(&failingSink{err: broken}))

	missing := filepath.Join(t.TempDir(), "does-not-exist")
	err := e.Export(context.Background(), subs, DefaultChannels, missing)
	if !errors.Is(err, domain.ErrExportWriteFailed) {
		t.Fatalf("expected ErrExportWriteFailed, got %v", err)
	}
	if !errors.Is(err, broken) {
		t.Fatalf("expected extra sink error to be joined, got %v", err)
	}
	if domain.IsFatal(err) {
		t.Fatalf("write failures must not be fatal")
	}

	text := out.String()
	if !strings.Contains(text, "Error writing data to file\n") {
		t.Fatalf("expected write error diagnostic, got %q", text)
	}
	if !strings.Contains(text, "[[RESULT]] Power|3.7|12.5\n") {
		t.Fatalf("results must still be printed, got %q", text)
	}
	if obs.counters["nominal_export_failures_total/file"] != 1 || obs.counters["nominal_export_failures_total/broken"] != 1 {
		t.Fatalf("unexpected failure counters %v", obs.counters)
	}
}

func TestExportFetchFailureIsFatal(t *testing.T) {
	subs, _ := powerFixture()
	var out bytes.Buffer
	e, _ := New(&stubFetcher{err: errors.New("timeout")}, &out, &stubObs{})

	err := e.Export(context.Background(), subs, DefaultChannels, "")
	if !errors.Is(err, domain.ErrTelemetryFetchFailed) || !domain.IsFatal(err) {
		t.Fatalf("expected fatal fetch failure, got %v", err)
	}

	err = e.Export(context.Background(), scenario.Subscriptions{}, DefaultChannels, "")
	if !errors.Is(err, domain.ErrTelemetryFetchFailed) {
		t.Fatalf("expected fetch failure for unsubscribed channel, got %v", err)
	}
}
