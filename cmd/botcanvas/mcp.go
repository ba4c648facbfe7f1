package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/botcanvas"
	"github.com/aretw0/botcanvas/internal/logging"
	"github.com/aretw0/botcanvas/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes the graph tools (lint, compile, export, connection checks, Mermaid)
to AI agents over MCP.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		addr, _ := cmd.Flags().GetString("addr")
		templates, _ := cmd.Flags().GetString("templates")

		level := slog.LevelInfo
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			level = slog.LevelDebug
		}
		logger := logging.New(level)

		opts := []mcp.Option{mcp.WithLogger(logger)}
		if templates != "" {
			loader, err := botcanvas.OpenTemplates(templates)
			if err != nil {
				return err
			}
			opts = append(opts, mcp.WithTemplates(loader))
		}
		srv := mcp.NewServer(opts...)

		switch transport {
		case "stdio":
			// Ensure logs don't corrupt JSON-RPC on Stdout
			log.SetOutput(os.Stderr)
			logger.Info("Starting botcanvas MCP Server (Stdio)...")
			return srv.ServeStdio()
		case "sse":
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := srv.ServeSSE(ctx, addr); err != nil {
				return err
			}
			logger.Info("MCP Server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport %q (supported: stdio, sse)", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().String("addr", "localhost:8081", "Address to listen on (only for SSE)")
	mcpCmd.Flags().String("templates", "", "Directory of a Loam template library")
}
