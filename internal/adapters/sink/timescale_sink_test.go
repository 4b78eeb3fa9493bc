package sink

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/NominalSystems/go-nominal-example/internal/domain"
)

func ptr(f float64) *float64 { return &f }

func TestTimescaleSinkWriteSeries(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	epoch := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	sink := NewTimescaleSink(db, "telemetry", epoch)

	series := &domain.Series{
		Component: "solar_panel",
		Message:   "Out_PowerSourceMsg",
		Field:     "Power",
		Samples: []domain.Sample{
			{Time: ptr(12.5), Data: map[string]any{"Power": json.Number("3.7")}},
			{Time: nil, Data: map[string]any{"Power": json.Number("1.0")}},
			{Time: ptr(13), Data: map[string]any{"Voltage": json.Number("5")}},
		},
	}

	ts := epoch.Add(12500 * time.Millisecond)
	expectedQuery := regexp.QuoteMeta("INSERT INTO telemetry (component, message, field, sim_time, ts, jd, value) VALUES ($1,$2,$3,$4,$5,$6,$7) ON CONFLICT (component, message, field, sim_time) DO NOTHING")
	mock.ExpectExec(expectedQuery).
		WithArgs("solar_panel", "Out_PowerSourceMsg", "Power", 12.5, ts, sqlmock.AnyArg(), []byte("3.7")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := sink.WriteSeries(context.Background(), series); err != nil {
		t.Fatalf("write series: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleSinkWriteSeriesNoSamples(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	sink := NewTimescaleSink(db, "telemetry", time.Now())
	if err := sink.WriteSeries(context.Background(), &domain.Series{Field: "Power"}); err != nil {
		t.Fatalf("expected nil error for empty series, got %v", err)
	}
	if err := sink.WriteSeries(context.Background(), nil); err != nil {
		t.Fatalf("expected nil error for nil series, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleSinkName(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	sink := NewTimescaleSink(db, "telemetry", time.Now())
	if sink.Name() != "timescaledb" {
		t.Fatalf("expected sink name timescaledb, got %s", sink.Name())
	}
}

func TestSampleTime(t *testing.T) {
	epoch := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	got := SampleTime(epoch, 100)
	want := time.Date(2022, 1, 1, 0, 1, 40, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}
