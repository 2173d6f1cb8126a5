package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/taskhub/internal/app"
)

// shutdownTimeout bounds graceful shutdown once the context is canceled.
const shutdownTimeout = 10 * time.Second

var (
	serveAddr  string
	serveStore string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the REST API server. The store is picked from STORE_DRIVER or
DATABASE_URL; Redis caching, the circuit breaker and RabbitMQ events are
enabled by their environment variables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := currentConfig()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.HTTPAddr = serveAddr
		}
		if serveStore != "" {
			cfg.StoreDriver = serveStore
		}

		ctx := cmd.Context()
		log := currentLogger()

		container, err := app.NewContainer(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer container.Close()

		errCh := make(chan error, 1)
		go func() {
			errCh <- container.Server.Start()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := container.Server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		log.Info("server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides HTTP_ADDR)")
	serveCmd.Flags().StringVar(&serveStore, "store", "", "store driver: memory, sqlite, postgres or mongo (overrides STORE_DRIVER)")
	rootCmd.AddCommand(serveCmd)
}
