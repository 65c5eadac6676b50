package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/teleskop/fieldbridge/config"
	"github.com/teleskop/fieldbridge/logger"
	"github.com/teleskop/fieldbridge/server"
)

// startConfigWatcher watches the resolved config file and applies what
// can change at runtime: the record-fetch rate limit is re-tuned live,
// everything else takes effect on the next start. Returns nil when no
// config file is in play (pure env/default runs).
func startConfigWatcher(cmd *cobra.Command, ws *workspace) *config.Watcher {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.GetViper().ConfigFileUsed()
	}
	if path == "" {
		return nil
	}

	watcher, err := config.NewWatcher(path)
	if err != nil {
		logger.Warnw("Config watcher unavailable; serving with startup config",
			"path", path,
			"error", err)
		return nil
	}

	watcher.OnReload(func(next *config.Config) error {
		if ws.limiter != nil && next.Batch.FetchRatePerSecond > 0 {
			ws.limiter.SetLimit(rate.Limit(next.Batch.FetchRatePerSecond))
			if next.Batch.FetchBurst > 0 {
				ws.limiter.SetBurst(next.Batch.FetchBurst)
			}
			logger.Infow("Applied reloaded fetch rate",
				"rate_per_second", next.Batch.FetchRatePerSecond,
				"burst", next.Batch.FetchBurst)
		} else {
			logger.Infow("Config reloaded; non-runtime settings apply on next start")
		}
		return nil
	})
	watcher.Start()
	return watcher
}

// ServeCmd starts the batch-state HTTP/WebSocket server
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the batch-state HTTP/WebSocket server",
	Long: `Serve the session over HTTP: JSON endpoints for mapping operations and
a WebSocket stream that pushes batch preview state as records resolve.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace(cmd)
		if err != nil {
			return err
		}
		defer ws.close()

		port := config.DefaultServerPort
		if ws.cfg.Server.Port != nil {
			port = *ws.cfg.Server.Port
		}

		if watcher := startConfigWatcher(cmd, ws); watcher != nil {
			defer watcher.Stop()
		}

		srv := server.New(ws.sess, logger.Logger, ws.cfg.Server.AllowedOrigins)

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start(port) }()

		pterm.Success.Printf("Serving session %s on :%d\n", ws.sess.ID(), port)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case sig := <-sigCh:
			logger.Infow("Shutting down", "signal", sig.String())
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		}
	},
}
