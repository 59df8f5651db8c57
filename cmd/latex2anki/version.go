package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of latex2anki",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "latex2anki %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
