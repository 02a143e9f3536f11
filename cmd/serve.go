package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/satslab/satslab/internal/api"
	"github.com/satslab/satslab/internal/logging"
)

const (
	sweepInterval   = time.Minute
	shutdownTimeout = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the modules over a JSON HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		d, err := buildDeps(ctx, cmd, logging.Options{Writer: os.Stderr})
		if err != nil {
			return err
		}
		defer d.Close()

		addr := d.cfg.Addr
		if a, _ := cmd.Flags().GetString("addr"); a != "" {
			addr = a
		}

		d.registry.StartSweeper(ctx, sweepInterval, d.cfg.SessionIdle)

		srv := api.NewServer(api.Options{
			Catalog:     d.catalog,
			Registry:    d.registry,
			Validator:   d.validator,
			Badges:      d.badges,
			Tutor:       d.tutor,
			Logger:      d.logger,
			CORSOrigins: d.cfg.CORSOrigins,
		})

		httpServer := &http.Server{
			Addr:              addr,
			Handler:           srv.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			d.logger.Info("listening",
				zap.String("addr", addr),
				zap.Bool("offline", d.cfg.Explorer.Offline),
				zap.Bool("tutor", d.tutor != nil))
			errCh <- httpServer.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("serve: %w", err)
		case <-ctx.Done():
		}

		d.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides SATSLAB_ADDR)")
}
