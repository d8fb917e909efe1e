// Package report writes classified sector reports as plain text, JSON or Markdown.
package report

import (
	"fmt"
	"io"

	"github.com/nedpals/davi-sector-agent/protocol"
)

// Writer writes a sector report to its destination.
type Writer interface {
	// Write returns the number of bytes written.
	Write(report *protocol.SectorReportPayload) (int, error)
}

// NewWriter returns the writer for format ("text", "json" or "markdown").
func NewWriter(format string, output io.Writer) (Writer, error) {
	switch format {
	case "text", "":
		return NewTextWriter(output), nil
	case "json":
		return NewJSONWriter(output, WithPrettyPrint()), nil
	case "markdown":
		return NewMarkdownWriter(output), nil
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

// MultiWriter writes to multiple Writers. It stops on the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

func (m *MultiWriter) Write(report *protocol.SectorReportPayload) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
