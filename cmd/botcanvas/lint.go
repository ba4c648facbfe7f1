package main

import (
	"os"

	"github.com/aretw0/botcanvas/internal/cli"
	"github.com/aretw0/botcanvas/internal/presentation/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var lintCmd = &cobra.Command{
	Use:   "lint <snapshot>",
	Short: "Report the findings that block or warn about an export",
	Long: `Lints a canvas snapshot (JSON or YAML, "-" for stdin) and prints every finding.
Exits with status 1 when any finding is an error.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		opts := cli.LintOptions{
			Options: snapshotOptions(cmd),
			JSON:    asJSON,
			Pretty:  !asJSON && tui.IsTerminal(os.Stdout),
		}
		if opts.Pretty {
			if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
				opts.Width = width
			}
		}
		return cli.RunLint(cmd.OutOrStdout(), args[0], opts)
	},
}

func init() {
	rootCmd.AddCommand(lintCmd)
	lintCmd.Flags().Bool("json", false, "Print findings as JSON")
}
