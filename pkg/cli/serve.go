package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/secmon-lab/madoguchi/pkg/cli/config"
	httpctrl "github.com/secmon-lab/madoguchi/pkg/controller/http"
	"github.com/secmon-lab/madoguchi/pkg/service/worker"
	"github.com/secmon-lab/madoguchi/pkg/usecase"
	"github.com/secmon-lab/madoguchi/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe(version string) *cli.Command {
	var addr string
	var corsOrigins []string
	var engineCfg engineConfig
	var repoCfg config.Repository
	var sentryCfg config.Sentry

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("MADOGUCHI_ADDR"),
			Destination: &addr,
		},
		&cli.StringSliceFlag{
			Name:        "cors-origin",
			Usage:       "Origin allowed to call the API from a browser; repeatable, * for any",
			Sources:     cli.EnvVars("MADOGUCHI_CORS_ORIGINS"),
			Destination: &corsOrigins,
		},
	}

	// Add shared config flags
	flags = append(flags, engineCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			flush, err := sentryCfg.Configure(version)
			if err != nil {
				return err
			}
			defer flush()

			eng, err := engineCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer eng.close()

			// Initialize repository based on backend type
			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			uc := usecase.New(repo, eng.loader, eng.embedder, usecase.WithSearchOptions(eng.searchOpts...))

			// Warm the index up in the background and keep it fresh
			refreshWorker := worker.NewIndexRefreshWorker(func(ctx context.Context) error {
				_, err := uc.Search.Refresh(ctx, false)
				return err
			}, engineCfg.search.RefreshInterval())
			workerCtx, cancelWorker := context.WithCancel(context.WithoutCancel(ctx))
			defer cancelWorker()
			if err := refreshWorker.Start(workerCtx); err != nil {
				return goerr.Wrap(err, "failed to start index refresh worker")
			}

			httpOpts := []httpctrl.Options{
				httpctrl.WithServiceInfo(httpctrl.DefaultServiceName, version),
			}
			if len(corsOrigins) > 0 {
				httpOpts = append(httpOpts, httpctrl.WithCORS(corsOrigins))
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc.Search, uc.Feedback, httpOpts...),
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			// Start server in goroutine
			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr, "repository", repoCfg)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			// Wait for shutdown signal or server error
			select {
			case err := <-errCh:
				cancelWorker()
				refreshWorker.Stop()
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				// Stop the refresh worker first; an in-flight build keeps running detached
				cancelWorker()
				refreshWorker.Stop()

				// Create shutdown context with timeout
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				// Attempt graceful shutdown
				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
