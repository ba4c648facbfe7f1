package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/botcanvas/internal/cli"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <snapshot>",
	Short: "Export the dialogue graph visualization",
	Long:  `Outputs a Mermaid diagram (graph TD) of the snapshot with lint findings highlighted.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.RunGraph(cmd.OutOrStdout(), args[0], snapshotOptions(cmd))
	},
}

var errRejected = errors.New("connection rejected")

var connectCmd = &cobra.Command{
	Use:   "connect <snapshot> <source> <target>",
	Short: "Check whether two nodes may be connected",
	Long:  `Evaluates the connection rules for source -> target and names the rule that decided. Exits with status 1 when rejected.`,
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ok, err := cli.RunConnect(cmd.OutOrStdout(), args[0], args[1], args[2], snapshotOptions(cmd))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s -> %s", errRejected, args[1], args[2])
		}
		return nil
	},
}

var templateCmd = &cobra.Command{
	Use:   "template <dir> [name]",
	Short: "List or print templates of a Loam template library",
	Long: `Without a name, lists the templates found in dir. With a name, prints the
template's graph as a snapshot (use --format yaml for YAML).`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) > 1 {
			name = args[1]
		}
		return cli.RunTemplate(cmd.Context(), cmd.OutOrStdout(), args[0], name, snapshotOptions(cmd))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(templateCmd)
}
