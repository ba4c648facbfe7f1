package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/botcanvas/internal/cli"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "botcanvas",
	Short: "botcanvas lints and compiles chatbot dialogue graphs",
	Long: `botcanvas checks the dialogue graphs drawn on the authoring canvas,
reports what still blocks an export and compiles them into the nested
conversation definition read by bot runtimes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, cli.ErrLintFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("format", "", "Snapshot format: json or yaml (default: from the file extension)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging on stderr")
}

func snapshotOptions(cmd *cobra.Command) cli.Options {
	format, _ := cmd.Flags().GetString("format")
	debug, _ := cmd.Flags().GetBool("debug")
	return cli.Options{Format: format, Debug: debug}
}
