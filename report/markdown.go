package report

import (
	"io"
	"sort"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nedpals/davi-sector-agent/protocol"
)

// MarkdownWriter outputs reports as GitHub flavored Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

func (w *MarkdownWriter) Write(report *protocol.SectorReportPayload) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSectors(md, report)
	w.writeSummary(md, report)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *protocol.SectorReportPayload) {
	md.H1("Sector Report")
	md.PlainText("")

	rows := [][]string{}
	if report.UID != "" {
		rows = append(rows, []string{"UID", "`" + report.UID + "`"})
	}
	if report.Type != "" {
		rows = append(rows, []string{"Type", report.Type})
	}
	if report.Source != "" {
		rows = append(rows, []string{"Source", report.Source})
	}
	if report.ScannedAt != "" {
		rows = append(rows, []string{"Scanned", report.ScannedAt})
	}
	if len(rows) == 0 {
		return
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSectors(md *markdown.Markdown, report *protocol.SectorReportPayload) {
	md.H2("Sectors")
	md.PlainText("")

	if len(report.Sectors) == 0 {
		md.PlainText("No sectors in dump.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(report.Sectors))
	for _, s := range report.Sectors {
		kind := s.Kind
		if s.Status == protocol.SectorStatusAuthFailed {
			kind = "-"
		}
		rows = append(rows, []string{s.Key, s.Status, kind, escapeCell(sectorContent(s))})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Sector", "Status", "Kind", "Content"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *protocol.SectorReportPayload) {
	md.H2("Summary")
	md.PlainText("")

	kinds := make([]string, 0, len(report.Summary))
	for kind := range report.Summary {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	if len(kinds) > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Sector Kinds"),
			piechart.WithShowData(true),
		)
		for _, kind := range kinds {
			chart.LabelAndIntValue(kind, uint64(report.Summary[kind]))
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	if failed := report.Summary[protocol.SectorStatusAuthFailed]; failed > 0 {
		md.Warningf("%d sector(s) could not be authenticated.", failed)
	} else {
		md.Tip("All sectors authenticated.")
	}
	md.PlainText("")
}

func sectorContent(s protocol.SectorResultPayload) string {
	switch {
	case s.Status == protocol.SectorStatusAuthFailed:
		return s.FailureMarker
	case s.Kind == "manufacturer":
		return "UID `" + s.UID + "`, " + s.ManufacturerText
	case s.HexPreview != "":
		return "`" + s.HexPreview + "`"
	case s.Text != "":
		return s.Text
	case s.Kind == "incomplete":
		return "Incomplete data"
	default:
		return ""
	}
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
