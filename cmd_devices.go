package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nedpals/davi-sector-agent/nfc"
)

// NewDevicesCmd creates the devices command.
func NewDevicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List available card readers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			devices, err := nfc.ListDevices(cfg.Reader.Driver)
			if err != nil {
				return fmt.Errorf("failed to list %s devices: %w", cfg.Reader.Driver, err)
			}

			out := cmd.OutOrStdout()
			if len(devices) == 0 {
				fmt.Fprintf(out, "No %s readers found\n", cfg.Reader.Driver)
				return nil
			}
			for _, device := range devices {
				fmt.Fprintln(out, device)
			}
			return nil
		},
	}

	cmd.Flags().String("driver", nfc.DriverPCSC, "Reader driver: pcsc or libnfc")
	return cmd
}
