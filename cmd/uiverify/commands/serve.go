package commands

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/copyleftdev/uiverify/internal/server"
	"github.com/copyleftdev/uiverify/internal/suites"
)

// serve: expose the run API until SIGINT or SIGTERM.
func serveCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the run API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port > 0 {
				cfg.Server.Port = port
			}
			registry, err := suites.LoadRegistry(cfg.Scenarios.Paths)
			if err != nil {
				return err
			}
			rm, err := newRunManager()
			if err != nil {
				return err
			}
			defer shutdownRunManager(rm)

			srv := server.NewServer(cfg, rm, registry, logger)
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				logger.Info("shutdown signal received")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Browser.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("server shutdown", zap.Error(err))
				return err
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides server.port)")
	return cmd
}
