package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nedpals/davi-sector-agent/config"
	"github.com/nedpals/davi-sector-agent/nfc"
)

// NewReadCmd creates the read command.
func NewReadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Dump and classify the card on a local reader",
		Long: `Read authenticates every sector of the MIFARE Classic card on the reader,
reads its blocks and prints the classified report.

Examples:
  # Read with the default PC/SC reader
  davi-sector-agent read

  # Wait up to 30s for a card on a libnfc device and keep the raw dump
  davi-sector-agent read --driver libnfc --wait 30s --save card.json`,
		Args: cobra.NoArgs,
		RunE: runReadCmd,
	}

	addReaderFlags(cmd)
	addReportFlags(cmd)
	cmd.Flags().Duration("wait", 0, "Keep polling for a card up to this long")
	cmd.Flags().String("save", "", "Also save the raw dump as JSON for the decode command")
	return cmd
}

func runReadCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	reader, err := newReader(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wait, _ := cmd.Flags().GetDuration("wait")
	dump, err := waitForCard(ctx, reader, wait, cfg.Reader.PollInterval)
	if err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("save"); path != "" {
		if err := saveDump(path, dump); err != nil {
			return err
		}
		log.Printf("Dump saved to %s", path)
	}

	payload, err := buildReport(dump, cfg, "reader")
	if err != nil {
		return err
	}
	return writeReport(cmd, cfg.Report.Format, payload)
}

// newReader creates the reader selected by cfg.
func newReader(cfg *config.Config) (nfc.SectorReader, error) {
	opts, err := cfg.ReaderOptions()
	if err != nil {
		return nil, err
	}
	return nfc.NewSectorReader(cfg.Reader.Driver, cfg.Reader.Device, opts)
}

// waitForCard dumps the presented card, retrying every interval while no
// card is present until wait has elapsed.
func waitForCard(ctx context.Context, reader nfc.SectorReader, wait, interval time.Duration) (*nfc.SectorDump, error) {
	deadline := time.Now().Add(wait)
	for {
		dump, err := reader.DumpSectors(ctx)
		if err == nil {
			return dump, nil
		}
		if !nfc.IsNoCardError(err) || !time.Now().Before(deadline) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}

// saveDump writes dump in the tag event format accepted by decode.
func saveDump(path string, dump *nfc.SectorDump) error {
	data, err := json.MarshalIndent(nfc.ToTagEvent(dump), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode dump: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to save dump: %w", err)
	}
	return nil
}
