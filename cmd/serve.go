package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/mfx/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the operator HTTP service until interrupted.
//
// Exposes the operator descriptors plus execution endpoints backed by the
// local registry, so an app frontend can list and invoke them over HTTP.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	db, store, err := r.openRegistry()
	if err != nil {
		return err
	}
	defer db.Close()

	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(server.NewOperatorHandler(store, r.engine))

	serverAddr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting operator server at %v", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	r.writePlain("→ Operator server listening on %s\n", serverAddr)
	r.writePlain("→ Press Ctrl+C to stop\n")

	notifyCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-notifyCtx.Done():
		// Interrupted, shut down
	}

	r.writePlain("\n→ Shutting down...\n")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	return nil
}

// serveCommand runs the operator HTTP service
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the operator HTTP service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Serve,
	}
}
