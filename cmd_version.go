package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nedpals/davi-sector-agent/buildinfo"
)

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), buildinfo.BuildInfo())
		},
	}
}
