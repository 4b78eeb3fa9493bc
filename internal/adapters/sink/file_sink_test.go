package sink

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/NominalSystems/go-nominal-example/internal/domain"
)

func TestFileSinkWriteSeries(t *testing.T) {
	dir := t.TempDir()
	sink := NewFileSink(dir)

	series := &domain.Series{
		Component: "solar_panel",
		Message:   "Out_PowerSourceMsg",
		Field:     "Power",
		Samples: []domain.Sample{
			{Time: ptr(0.2), Data: map[string]any{"Power": json.Number("3.1303")}},
			{Time: ptr(0.4), Data: map[string]any{"Power": json.Number("3.1303")}},
		},
	}
	if err := sink.WriteSeries(context.Background(), series); err != nil {
		t.Fatalf("write series: %v", err)
	}

	path := filepath.Join(dir, "Data_solar_panel_Power.txt")
	if sink.Path(series) != path {
		t.Fatalf("expected path %s, got %s", path, sink.Path(series))
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	want := `[{"time":0.2,"data":{"Power":3.1303}},{"time":0.4,"data":{"Power":3.1303}}]`
	if string(b) != want {
		t.Fatalf("unexpected file content:\n%s\nwant:\n%s", b, want)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the export file, got %d entries", len(entries))
	}
}

func TestFileSinkEmptySeriesWritesEmptyArray(t *testing.T) {
	dir := t.TempDir()
	sink := NewFileSink(dir)
	series := &domain.Series{Component: "solar_panel", Field: "Power"}
	if err := sink.WriteSeries(context.Background(), series); err != nil {
		t.Fatalf("write series: %v", err)
	}
	b, err := os.ReadFile(sink.Path(series))
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if string(b) != "[]" {
		t.Fatalf("expected [], got %s", b)
	}
}

func TestFileSinkMissingDirectory(t *testing.T) {
	sink := NewFileSink(filepath.Join(t.TempDir(), "missing"))
	err := sink.WriteSeries(context.Background(), &domain.Series{Component: "solar_panel", Field: "Power"})
	if err == nil {
		t.Fatalf("expected error writing into a missing directory")
	}
}
