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

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rohits-web03/edudrive/internal/api"
)

func NewServeCommand(c *container) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), c)
		},
	}
}

func runServe(ctx context.Context, c *container) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", c.cfg.Port),
		Handler: api.SetupRouter(c.cfg, c.svc, log.Logger),
		// Timeouts prevent resource exhaustion from slow clients
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("port", c.cfg.Port).Msg("starting EduDrive server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on port %s: %w", c.cfg.Port, err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
		defer stop()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
