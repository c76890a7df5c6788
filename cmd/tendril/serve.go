package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/internal/cli"
	httpAdapter "github.com/aretw0/tendril/pkg/adapters/http"
	"github.com/aretw0/tendril/pkg/observability"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve [schema]",
	Short: "Start the HTTP server",
	Long: `Serves instances of the schema over a JSON API, with Server-Sent Events for
changes and Prometheus metrics on /metrics.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := options(cmd, args)
		port, _ := cmd.Flags().GetString("port")
		logger := cli.NewLogger(opts.Debug)

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics := observability.NewMetrics(reg)

		eng, err := cli.CreateEngine(opts, logger, tendril.WithLifecycleHooks(metrics.Hooks()))
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

		r := chi.NewRouter()
		r.Handle("/metrics", observability.Handler(reg))
		r.Mount("/", httpAdapter.NewHandler(sessions, httpAdapter.WithLogger(logger)))

		srv := &http.Server{
			Addr:              ":" + port,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			cli.PrintSystemMessage("Starting Tendril Server on %s", srv.Addr)
			cli.PrintSystemMessage("Serving parameters from: %s", opts.SchemaPath)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)
		case <-sigCtx.Done():
			cli.PrintSystemMessage("Start shutdown... Signal: %v", sigCtx.Signal())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			// SSE streams never finish on their own.
			if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("Graceful shutdown did not complete", "timeout", 5*time.Second, "err", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			cli.PrintSystemMessage("Tendril Server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
}
