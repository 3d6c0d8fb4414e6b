package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ternarybob/invoicer/internal/common"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		if versionBanner {
			common.PrintBanner()
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Invoicer version %s\n", common.GetFullVersion())
	},
}

var versionBanner bool

func init() {
	versionCmd.Flags().BoolVar(&versionBanner, "banner", false, "Print the application banner")
}
