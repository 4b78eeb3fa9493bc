package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/NominalSystems/go-nominal-example/internal/domain"
	"github.com/NominalSystems/go-nominal-example/internal/ports"
)

// FileSink writes a series as a JSON array of {time, data} samples to
// <dir>/Data_<component>_<field>.txt.
type FileSink struct {
	dir string
}

func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

func (f *FileSink) Name() string { return "file" }

func (f *FileSink) Path(s *domain.Series) string {
	return filepath.Join(f.dir, fmt.Sprintf("Data_%s_%s.txt", s.Component, s.Field))
}

func (f *FileSink) WriteSeries(_ context.Context, s *domain.Series) error {
	if s == nil {
		return nil
	}
	samples := s.Samples
	if samples == nil {
		samples = []domain.Sample{}
	}
	b, err := json.Marshal(samples)
	if err != nil {
		return fmt.Errorf("marshal series: %w", err)
	}

	// Write to a temp file in the same directory and rename so readers never
	// see a partial export.
	tmp, err := os.CreateTemp(f.dir, ".export-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, f.Path(s)); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

var _ ports.Sink = (*FileSink)(nil)
