package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/nedpals/davi-sector-agent/buildinfo"
	"github.com/nedpals/davi-sector-agent/config"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   buildinfo.Name,
		Short: "Decode MIFARE Classic sector dumps",
		Long: `Classifies every sector of a MIFARE Classic dump as a manufacturer block,
an NDEF Text record, printable text or raw data.

Dumps come from a JSON file, a local PC/SC or libnfc reader, or phones posting
tag events to the agent's HTTP and WebSocket API.`,
		Version:       buildinfo.FullVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: "+config.DefaultConfigFile+" or the XDG config directory)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewDecodeCmd())
	cmd.AddCommand(NewReadCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewDevicesCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads the configuration file and applies the flags shared by
// every command. Command-specific overrides are applied by the caller
// before Validate.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("verbose") {
		cfg.Verbose, _ = cmd.Flags().GetBool("verbose")
	}
	if cfg.Verbose {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	}

	applyStringFlag(cmd, "driver", &cfg.Reader.Driver)
	applyStringFlag(cmd, "device", &cfg.Reader.Device)
	applyStringFlag(cmd, "format", &cfg.Report.Format)
	applyBoolFlag(cmd, "strict", &cfg.StrictHex)
	if cmd.Flags().Changed("sectors") {
		cfg.Reader.Sectors, _ = cmd.Flags().GetInt("sectors")
	}
	if cmd.Flags().Changed("key") {
		cfg.Reader.Keys, _ = cmd.Flags().GetStringSlice("key")
	}
	return cfg, nil
}

func applyStringFlag(cmd *cobra.Command, name string, dst *string) {
	if cmd.Flags().Changed(name) {
		*dst, _ = cmd.Flags().GetString(name)
	}
}

func applyBoolFlag(cmd *cobra.Command, name string, dst *bool) {
	if cmd.Flags().Changed(name) {
		*dst, _ = cmd.Flags().GetBool(name)
	}
}

// addReaderFlags registers the flags selecting and tuning a live reader.
func addReaderFlags(cmd *cobra.Command) {
	cmd.Flags().String("driver", config.DefaultDriver, "Reader driver: pcsc or libnfc")
	cmd.Flags().StringP("device", "d", "", "Reader name or libnfc connection string (default: first found)")
	cmd.Flags().Int("sectors", 0, "Number of sectors to read (default: whole card)")
	cmd.Flags().StringSlice("key", nil, "MIFARE key to try, 12 hex digits (repeatable)")
}

// addReportFlags registers the report output flags.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", config.DefaultReportFormat, "Report format: text, json or markdown")
	cmd.Flags().StringP("output", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().Bool("tee", false, "With --output, also print the text report to stdout")
	cmd.Flags().Bool("strict", false, "Reject blocks that are not 32 hex characters")
}
