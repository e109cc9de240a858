package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Display the current version of routeadd.`,
	Args:  cobra.NoArgs,
	// Settings are not needed to print the version
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "routeadd %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
