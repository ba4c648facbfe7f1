package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/botcanvas/internal/cli"
	"github.com/aretw0/botcanvas/internal/config"
	"github.com/aretw0/botcanvas/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Serves the stateless lint/compile/export API and hosts editable documents.
Documents live in Redis when an address is configured, otherwise in the
--data directory, otherwise in memory.

Configuration is read from --config (YAML) and BOTCANVAS_* environment
variables; flags given here take precedence.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("addr") {
			cfg.HTTP.Addr, _ = cmd.Flags().GetString("addr")
		}
		if cmd.Flags().Changed("redis") {
			cfg.Redis.Addr, _ = cmd.Flags().GetString("redis")
		}
		if cmd.Flags().Changed("data") {
			cfg.Storage.Dir, _ = cmd.Flags().GetString("data")
		}
		if cmd.Flags().Changed("templates") {
			cfg.Templates, _ = cmd.Flags().GetString("templates")
		}
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			cfg.Log.Level = "debug"
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		if tui.IsTerminal(os.Stderr) {
			tui.PrintBanner(os.Stderr)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return cli.Serve(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("config", "c", "", "Path to a YAML configuration file")
	serveCmd.Flags().String("addr", "", "Listen address (host:port)")
	serveCmd.Flags().String("redis", "", "Redis address for document storage")
	serveCmd.Flags().String("data", "", "Directory for document files when Redis is not used")
	serveCmd.Flags().String("templates", "", "Directory of a Loam template library")
}
