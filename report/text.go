package report

import (
	"io"
	"strings"

	"github.com/nedpals/davi-sector-agent/protocol"
)

// TextWriter prints one line per sector, the same lines the agent logs.
type TextWriter struct {
	baseWriter
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer) *TextWriter {
	return &TextWriter{baseWriter: newBaseWriter(output)}
}

func (w *TextWriter) Write(report *protocol.SectorReportPayload) (int, error) {
	var sb strings.Builder
	if report.UID != "" {
		sb.WriteString("UID: " + report.UID + "\n")
	}
	if report.Type != "" {
		sb.WriteString("Type: " + report.Type + "\n")
	}
	for _, sector := range report.Sectors {
		sb.WriteString(sector.Line)
		sb.WriteByte('\n')
	}
	return io.WriteString(w.output, sb.String())
}
