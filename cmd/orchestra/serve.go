package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/civicchat/orchestra"
	httpadapter "github.com/civicchat/orchestra/pkg/adapters/http"
	"github.com/civicchat/orchestra/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the HTTP API: agent and workflow runs (JSON and Server-Sent Events),
conversation threads, the workflow graph, Prometheus metrics and an MCP endpoint on /mcp.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			a.cfg.Server.Addr = addr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		mgr, closeStore, err := openThreads(ctx, a.cfg.Store, a.logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := closeStore(); err != nil {
				a.logger.Warn("Failed to close thread store", "error", err)
			}
		}()

		auth := httpadapter.BearerTokens(a.cfg.Auth.Tokens)
		if len(a.cfg.Auth.Tokens) == 0 {
			a.logger.Warn("No auth tokens configured, every request is accepted as 'anonymous'")
			auth = httpadapter.Anonymous("anonymous")
		}

		mcpServer := mcp.NewServer(a.engine, orchestra.Version(), mcp.WithLogger(a.logger))
		api := httpadapter.NewServer(a.engine, mgr,
			httpadapter.WithAuthenticator(auth),
			httpadapter.WithMetrics(a.metrics),
			httpadapter.WithLogger(a.logger),
			httpadapter.WithCORSOrigin(a.cfg.Server.CORSOrigin),
			httpadapter.WithMaxBodyBytes(int64(a.cfg.Server.MaxBodyBytes)),
			httpadapter.WithMount("/mcp", mcpServer.Handler()),
		)

		srv := &http.Server{
			Addr:    a.cfg.Server.Addr,
			Handler: api.Handler(),
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			a.logger.Info("Orchestra server listening",
				"addr", srv.Addr,
				"store", a.cfg.Store.Driver,
				"version", orchestra.Version(),
			)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil

		case <-ctx.Done():
			a.logger.Info("Shutdown signal received")

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Error("Graceful shutdown did not complete", "timeout", a.cfg.Server.ShutdownTimeout, "error", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			a.logger.Info("Orchestra server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (overrides server.addr)")
}
