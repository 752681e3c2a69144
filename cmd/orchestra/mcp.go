package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/civicchat/orchestra"
	"github.com/civicchat/orchestra/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts orchestra as an MCP Server.
The routed workflow is published as the "ask" tool and every specialist agent as
a tool of its own.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- http: Uses streamable HTTP. Ideal for remote agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		addr, _ := cmd.Flags().GetString("addr")

		// Logs go to stderr and never corrupt JSON-RPC on stdout.
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		srv := mcp.NewServer(a.engine, orchestra.Version(), mcp.WithLogger(a.logger))

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		switch transport {
		case "stdio":
			a.logger.Info("Starting orchestra MCP server (stdio)")
			return srv.ServeStdio(ctx, os.Stdin, os.Stdout)

		case "http":
			httpServer := &http.Server{Addr: addr, Handler: srv.Handler()}
			serverErrors := make(chan error, 1)
			go func() {
				a.logger.Info("Starting orchestra MCP server (http)", "addr", addr)
				serverErrors <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-serverErrors:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				defer cancel()
				if err := httpServer.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("could not stop server gracefully: %w", err)
				}
				a.logger.Info("MCP server stopped gracefully")
				return nil
			}
		}
		return fmt.Errorf("unknown transport: %s. Supported: stdio, http", transport)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'http'")
	mcpCmd.Flags().String("addr", ":8081", "Address to listen on (only for http)")
}
