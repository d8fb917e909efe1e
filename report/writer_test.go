package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/nedpals/davi-sector-agent/protocol"
)

func createTestReport() *protocol.SectorReportPayload {
	return &protocol.SectorReportPayload{
		ID:        "0b9f0a4e-6f0e-4b7a-9b7e-2a6c1b1d2e3f",
		UID:       "04:AA:BB:CC",
		Type:      "MIFARE Classic 1K",
		Source:    "decode",
		ScannedAt: "2026-01-02T03:04:05Z",
		Sectors: []protocol.SectorResultPayload{
			{
				Key: "sector_0", Status: protocol.SectorStatusOK, Kind: "manufacturer",
				Line: "--- sector_0 --- [Manufacturer] UID:04112233 | Data:NXP-ABCD",
				UID:  "04112233", ManufacturerText: "NXP-ABCD",
			},
			{
				Key: "sector_1", Status: protocol.SectorStatusOK, Kind: "ndef",
				Line: "--- sector_1 --- [NDEF] a|b", Text: "a|b",
			},
			{
				Key: "sector_2", Status: protocol.SectorStatusAuthFailed,
				Line: "sector_2: authentication failed (Auth Failed)", FailureMarker: "Auth Failed",
			},
			{
				Key: "sector_3", Status: protocol.SectorStatusOK, Kind: "raw",
				Line:       "--- sector_3 --- [Raw] 00000000000000000000000000000000...",
				HexPreview: "00000000000000000000000000000000",
			},
		},
		Summary: map[string]int{"manufacturer": 1, "ndef": 1, "raw": 1, "authFailed": 1},
	}
}

func TestTextWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	n, err := NewTextWriter(&buf).Write(createTestReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != buf.Len() {
		t.Errorf("expected %d bytes reported, got %d", buf.Len(), n)
	}

	expected := strings.Join([]string{
		"UID: 04:AA:BB:CC",
		"Type: MIFARE Classic 1K",
		"--- sector_0 --- [Manufacturer] UID:04112233 | Data:NXP-ABCD",
		"--- sector_1 --- [NDEF] a|b",
		"sector_2: authentication failed (Auth Failed)",
		"--- sector_3 --- [Raw] 00000000000000000000000000000000...",
	}, "\n") + "\n"
	if buf.String() != expected {
		t.Errorf("unexpected output:\n%s\nwant:\n%s", buf.String(), expected)
	}
}

func TestTextWriter_NoHeader(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	report := &protocol.SectorReportPayload{
		Sectors: []protocol.SectorResultPayload{{Line: "--- sector_0 --- [Text] ABC"}},
	}
	if _, err := NewTextWriter(&buf).Write(report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.String() != "--- sector_0 --- [Text] ABC\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("compact", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Error("expected compact output on a single line")
		}

		var decoded protocol.SectorReportPayload
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.UID != "04:AA:BB:CC" || len(decoded.Sectors) != 4 {
			t.Errorf("unexpected decoded report %+v", decoded)
		}
		if decoded.Sectors[2].Status != protocol.SectorStatusAuthFailed {
			t.Errorf("expected authFailed status, got %q", decoded.Sectors[2].Status)
		}
	})

	t.Run("pretty", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  \"uid\": \"04:AA:BB:CC\"") {
			t.Errorf("expected indented output, got %s", buf.String())
		}
	})
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewMarkdownWriter(&buf).Write(createTestReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"# Sector Report",
		"| UID | `04:AA:BB:CC` |",
		"## Sectors",
		"| sector_0 | ok | manufacturer | UID `04112233`, NXP-ABCD |",
		`| sector_1 | ok | ndef | a\|b |`,
		"| sector_2 | authFailed | - | Auth Failed |",
		"| sector_3 | ok | raw | `00000000000000000000000000000000` |",
		"```mermaid",
		"1 sector(s) could not be authenticated.",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q\n%s", want, output)
		}
	}
}

func TestMarkdownWriter_AllAuthenticated(t *testing.T) {
	t.Parallel()

	report := &protocol.SectorReportPayload{
		Sectors: []protocol.SectorResultPayload{
			{Key: "sector_0", Status: protocol.SectorStatusOK, Kind: "incomplete", Line: "--- sector_0 --- Incomplete data"},
		},
		Summary: map[string]int{"incomplete": 1},
	}

	var buf bytes.Buffer
	if _, err := NewMarkdownWriter(&buf).Write(report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "All sectors authenticated.") {
		t.Errorf("expected tip, got %s", buf.String())
	}
	if !strings.Contains(buf.String(), "| sector_0 | ok | incomplete | Incomplete data |") {
		t.Errorf("expected incomplete row, got %s", buf.String())
	}
}

func TestNewWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	for _, format := range []string{"", "text", "json", "markdown"} {
		if _, err := NewWriter(format, &buf); err != nil {
			t.Errorf("NewWriter(%q) failed: %v", format, err)
		}
	}
	if _, err := NewWriter("html", &buf); err == nil {
		t.Error("expected error for unknown format")
	}
}

type failingWriter struct{}

func (failingWriter) Write(*protocol.SectorReportPayload) (int, error) {
	return 0, errors.New("disk full")
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	m := NewMultiWriter(NewTextWriter(&a), NewJSONWriter(&b))
	n, err := m.Write(createTestReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != a.Len()+b.Len() {
		t.Errorf("expected total %d, got %d", a.Len()+b.Len(), n)
	}

	var c bytes.Buffer
	m = NewMultiWriter(failingWriter{}, NewTextWriter(&c))
	if _, err := m.Write(createTestReport()); err == nil {
		t.Error("expected error")
	}
	if c.Len() != 0 {
		t.Error("expected writing to stop at the first error")
	}
}
