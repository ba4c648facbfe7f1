package main

import (
	"fmt"

	"github.com/aretw0/botcanvas/internal/cli"
	"github.com/spf13/cobra"
)

var compileCmd = &cobra.Command{
	Use:   "compile <snapshot>",
	Short: "Compile a snapshot into the conversation definition",
	Long:  `Prints the nested conversation definition ({"questions": [...]}) as JSON. Findings are not checked; use export for that.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.RunCompile(cmd.OutOrStdout(), args[0], snapshotOptions(cmd))
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <snapshot>",
	Short: "Lint, compile and write the export bundle",
	Long: `Writes main.json and the attachment payloads (images/ and files/) into the
output directory. Nothing is written when an error finding blocks the export.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		bundle, err := cli.RunExport(args[0], out, snapshotOptions(cmd))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d question(s) and %d file(s) to %s\n",
			len(bundle.Definition.Questions), len(bundle.Payloads), out)
		fmt.Fprintf(cmd.OutOrStdout(), "Fingerprint: %s\n", bundle.Fingerprint)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("out", "o", "dist", "Output directory")
}
