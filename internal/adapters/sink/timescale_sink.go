package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/soniakeys/meeus/v3/julian"

	"github.com/NominalSystems/go-nominal-example/internal/domain"
	"github.com/NominalSystems/go-nominal-example/internal/ports"
)

// TimescaleSink stores telemetry samples as rows keyed by component, message,
// field and simulation time.
type TimescaleSink struct {
	db        *sql.DB
	tableName string
	epoch     time.Time
}

func NewTimescaleSink(db *sql.DB, table string, epoch time.Time) *TimescaleSink {
	return &TimescaleSink{db: db, tableName: table, epoch: epoch.UTC()}
}

func (t *TimescaleSink) Name() string { return "timescaledb" }

func (t *TimescaleSink) WriteSeries(ctx context.Context, s *domain.Series) error {
	if s == nil {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(t.tableName)
	b.WriteString(" (component, message, field, sim_time, ts, jd, value) VALUES ")

	args := make([]any, 0, len(s.Samples)*7)
	rows := 0
	for _, sample := range s.Samples {
		if sample.Time == nil {
			continue
		}
		v, ok := sample.Field(s.Field)
		if !ok {
			continue
		}
		val, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal value: %w", err)
		}

		if rows > 0 {
			b.WriteString(",")
		}
		n := len(args)
		b.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d)", n+1, n+2, n+3, n+4, n+5, n+6, n+7))

		ts := SampleTime(t.epoch, *sample.Time)
		args = append(args,
			s.Component,
			s.Message,
			s.Field,
			*sample.Time,
			ts,
			julian.TimeToJD(ts),
			val,
		)
		rows++
	}
	if rows == 0 {
		return nil
	}

	b.WriteString(" ON CONFLICT (component, message, field, sim_time) DO NOTHING")

	_, err := t.db.ExecContext(ctx, b.String(), args...)
	return err
}

// SampleTime converts simulation seconds since epoch into wall-clock UTC.
func SampleTime(epoch time.Time, simSeconds float64) time.Time {
	return epoch.Add(time.Duration(simSeconds * float64(time.Second))).UTC()
}

var _ ports.Sink = (*TimescaleSink)(nil)
