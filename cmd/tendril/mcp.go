package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/aretw0/tendril/internal/cli"
	"github.com/aretw0/tendril/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp [schema]",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes instances of the schema as MCP tools (get_values, set_value,
reset_value, undo, redo) and the schema as a resource.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := options(cmd, args)
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		// Logs go to Stderr so they never corrupt JSON-RPC on Stdout.
		logger := cli.NewLogger(opts.Debug)
		slog.SetDefault(logger)
		log.SetOutput(os.Stderr)

		eng, err := cli.CreateEngine(opts, logger)
		if err != nil {
			return err
		}

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		backend, err := opts.OpenBackend(sigCtx)
		if err != nil {
			return err
		}
		defer backend.Close()

		sessions := eng.Sessions(backend.SessionOptions()...)
		defer sessions.Close()

		srv := mcp.NewServer(sessions, mcp.WithLogger(logger))

		switch transport {
		case "stdio":
			logger.Info("Starting Tendril MCP Server (Stdio)")
			return srv.ServeStdio()
		case "sse":
			logger.Info("Starting Tendril MCP Server (SSE)", "port", port)
			if err := srv.ServeSSE(sigCtx, port); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("MCP Server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
