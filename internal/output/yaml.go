package output

import (
	"bufio"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLWriter writes reports as YAML: a single document for one report, a
// sequence for several.
type YAMLWriter struct {
	w       *bufio.Writer
	reports []*Report
}

// NewYAMLWriter creates a YAML writer.
func NewYAMLWriter(w io.Writer) *YAMLWriter {
	return &YAMLWriter{w: bufio.NewWriter(w)}
}

// Write buffers a report.
func (w *YAMLWriter) Write(r *Report) error {
	w.reports = append(w.reports, r)
	return nil
}

// Flush writes the buffered reports and clears the buffer.
func (w *YAMLWriter) Flush() error {
	if len(w.reports) == 0 {
		return w.w.Flush()
	}

	encoder := yaml.NewEncoder(w.w)
	encoder.SetIndent(2)

	var err error
	if len(w.reports) == 1 {
		err = encoder.Encode(w.reports[0])
	} else {
		err = encoder.Encode(w.reports)
	}
	if err != nil {
		return err
	}
	if err := encoder.Close(); err != nil {
		return err
	}
	w.reports = nil

	return w.w.Flush()
}

// Close flushes the writer.
func (w *YAMLWriter) Close() error {
	return w.Flush()
}
