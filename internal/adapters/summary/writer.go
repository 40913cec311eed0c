package summary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/slicecore/internal/domain/print"
)

// ErrWriteFailed is returned when a report cannot be written.
var ErrWriteFailed = errors.New("failed to write summary")

// YAMLWriter implements print.OutputWriter by writing a Report to a file, or
// to Out when Path is empty.
type YAMLWriter struct {
	Path string
	Out  io.Writer
}

// NewFileWriter creates a writer for path.
func NewFileWriter(path string) *YAMLWriter {
	return &YAMLWriter{Path: path}
}

// NewStreamWriter creates a writer for w.
func NewStreamWriter(w io.Writer) *YAMLWriter {
	return &YAMLWriter{Out: w}
}

// Write serializes out. Files are replaced atomically.
func (w *YAMLWriter) Write(ctx context.Context, out *print.Output) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	report := NewReport(out)
	data, err := yaml.Marshal(&report)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	if w.Path == "" {
		if w.Out == nil {
			return fmt.Errorf("%w: no destination", ErrWriteFailed)
		}
		if _, err := w.Out.Write(data); err != nil {
			return fmt.Errorf("%w: %w", ErrWriteFailed, err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(w.Path), 0o755); err != nil {
		return fmt.Errorf("%w: failed to create directory: %w", ErrWriteFailed, err)
	}
	tmpPath := w.Path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	if err := os.Rename(tmpPath, w.Path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

// Load reads a report written by YAMLWriter.
func Load(path string) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("failed to read summary: %w", err)
	}
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Report{}, fmt.Errorf("failed to parse summary: %w", err)
	}
	return r, nil
}

var _ print.OutputWriter = (*YAMLWriter)(nil)
