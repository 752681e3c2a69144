package main

import (
	"fmt"

	"github.com/civicchat/orchestra"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of orchestra",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "orchestra version %s\n", orchestra.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
