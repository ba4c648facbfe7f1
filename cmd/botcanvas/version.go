package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/botcanvas"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of botcanvas",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "botcanvas version %s\n", strings.TrimSpace(botcanvas.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
