package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ironsheep/text-spotter/internal/server"
	"github.com/ironsheep/text-spotter/internal/transport/httpapi"
	"github.com/ironsheep/text-spotter/internal/version"
)

func newServeMCPCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve-mcp",
		Short: "Serve text tools over MCP on stdin/stdout",
		Long: "Serve text tools over MCP (JSON-RPC 2.0) on stdin/stdout.\n" +
			"Configure it in your MCP client; logs go to stderr.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, done, err := flags.start()
			if err != nil {
				return err
			}
			defer done()

			a.logger.Info("Starting MCP server",
				zap.String("version", version.Version),
				zap.String("commit", version.Commit),
			)
			return server.New(a.spotter, a.logger, version.Version).Run(cmd.Context())
		},
	}
}

func newServeHTTPCmd(flags *rootFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve-http",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, done, err := flags.start()
			if err != nil {
				return err
			}
			defer done()

			hc := a.cfg.HTTP
			if addr != "" {
				hc.Addr = addr
			}
			srv := httpapi.NewServer(a.spotter, httpapi.Config{
				Addr:         hc.Addr,
				ReadTimeout:  time.Duration(hc.ReadTimeoutSec) * time.Second,
				WriteTimeout: time.Duration(hc.WriteTimeoutSec) * time.Second,
				MaxBodyBytes: int64(hc.MaxBodyMB) << 20,
			}, a.logger)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
				a.logger.Info("Received shutdown signal")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(hc.ShutdownSec)*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Error("Error during shutdown", zap.Error(err))
				return err
			}
			a.logger.Info("Server stopped gracefully")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides http.addr)")
	return cmd
}
