package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nedpals/davi-sector-agent/config"
	"github.com/nedpals/davi-sector-agent/nfc"
	"github.com/nedpals/davi-sector-agent/protocol"
	"github.com/nedpals/davi-sector-agent/report"
)

// NewDecodeCmd creates the decode command.
func NewDecodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode [file|-]",
		Short: "Classify a JSON sector dump",
		Long: `Decode reads a tag event and prints one line per sector.

The input is either a full tag event or a bare sector map:

  {"uid": "04:AB:CD:EF", "mifareData": {"sector_0": ["0411...", ...], "sector_1": "Auth Failed"}}
  {"sector_0": ["0411...", ...], "sector_1": "Auth Failed"}

Examples:
  # Decode a dump saved by the read command
  davi-sector-agent decode card.json

  # Decode from stdin as markdown
  cat card.json | davi-sector-agent decode -f markdown`,
		Args: cobra.MaximumNArgs(1),
		RunE: runDecodeCmd,
	}

	addReportFlags(cmd)
	return cmd
}

func runDecodeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	input, name, err := openInput(cmd, args)
	if err != nil {
		return err
	}
	defer input.Close()

	event, err := protocol.DecodeTagEvent(input)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}

	dump, err := nfc.ConvertTagEvent(event)
	if err != nil {
		return err
	}

	payload, err := buildReport(dump, cfg, "decode")
	if err != nil {
		return err
	}
	return writeReport(cmd, cfg.Report.Format, payload)
}

// openInput opens the named file, or stdin for no argument or "-".
func openInput(cmd *cobra.Command, args []string) (io.ReadCloser, string, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(cmd.InOrStdin()), "stdin", nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, "", fmt.Errorf("failed to open dump: %w", err)
	}
	return f, args[0], nil
}

// buildReport classifies dump and wraps the result for the report writers.
func buildReport(dump *nfc.SectorDump, cfg *config.Config, source string) (*protocol.SectorReportPayload, error) {
	if cfg.StrictHex {
		if err := dump.Validate(); err != nil {
			return nil, err
		}
	}

	sectorReport := nfc.BuildReport(dump, nil)
	if cfg.Verbose {
		log.Printf("[%s] UID=%s type=%q sectors=%d failed=%d",
			source, sectorReport.UID, sectorReport.Type, len(sectorReport.Sectors), sectorReport.FailedSectors())
	}

	payload := nfc.ToSectorReportPayload(uuid.NewString(), source, time.Now(), sectorReport)
	return &payload, nil
}

// writeReport writes payload in format to --output or stdout. With --tee the
// console text report is printed as well.
func writeReport(cmd *cobra.Command, format string, payload *protocol.SectorReportPayload) error {
	path, _ := cmd.Flags().GetString("output")
	if path == "" {
		w, err := report.NewWriter(format, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	w, err := report.NewWriter(format, f)
	if err != nil {
		return err
	}
	if tee, _ := cmd.Flags().GetBool("tee"); tee {
		w = report.NewMultiWriter(w, report.NewTextWriter(cmd.OutOrStdout()))
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
