package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/NominalSystems/go-nominal-example/internal/domain"
	"github.com/NominalSystems/go-nominal-example/internal/ports"
)

// ResultPrefix starts every line consumed by downstream result parsers.
const ResultPrefix = "[[RESULT]]"

// ConsoleSink prints "[[RESULT]] <Field>|<Value>|<Time>" for every sample that
// carries both a time and the series field.
type ConsoleSink struct {
	w   io.Writer
	obs ports.Observability
}

func NewConsoleSink(w io.Writer, obs ports.Observability) *ConsoleSink {
	return &ConsoleSink{w: w, obs: obs}
}

func (c *ConsoleSink) Name() string { return "console" }

func (c *ConsoleSink) WriteSeries(_ context.Context, s *domain.Series) error {
	if s == nil {
		return nil
	}
	var emitted int
	for _, sample := range s.Samples {
		line, ok := ResultLine(s.Field, sample)
		if !ok {
			continue
		}
		if _, err := fmt.Fprintln(c.w, line); err != nil {
			return fmt.Errorf("console sink: %w", err)
		}
		emitted++
	}
	if c.obs != nil {
		c.obs.IncCounter("nominal_results_emitted_total", float64(emitted))
	}
	return nil
}

// ResultLine renders one sample; ok is false when time or field is missing.
func ResultLine(field string, s domain.Sample) (string, bool) {
	if s.Time == nil {
		return "", false
	}
	v, ok := s.Field(field)
	if !ok {
		return "", false
	}
	return ResultPrefix + " " + field + "|" + FormatValue(v) + "|" + FormatFloat(*s.Time), true
}

// FormatFloat renders f the way Python's repr does (12.5, 100.0, 1e-05).
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// FormatValue renders a decoded field value. Engine-supplied numbers are
// echoed verbatim.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "None"
	case json.Number:
		return val.String()
	case float64:
		return FormatFloat(val)
	case float32:
		return FormatFloat(float64(val))
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		if val {
			return "True"
		}
		return "False"
	case string:
		return val
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = FormatValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = "'" + k + "': " + FormatValue(val[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprint(val)
	}
}

var _ ports.Sink = (*ConsoleSink)(nil)
