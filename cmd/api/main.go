package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iamasit07/sessionbridge/internal/config"
	"github.com/iamasit07/sessionbridge/internal/repository/postgres"
	transportHttp "github.com/iamasit07/sessionbridge/internal/transport/http"
	"github.com/iamasit07/sessionbridge/pkg/logger"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	version  = "dev"
	revision = "none"
)

func main() {
	root := &cobra.Command{
		Use:           "sessionbridge",
		Short:         "Handoff code and rate limiting service",
		Version:       fmt.Sprintf("%s - build %.7s - %s", version, revision, runtime.Version()),
		Args:          cobra.ExactArgs(0),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd, migrateCmd, cleanupCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}

var (
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run migrations and start the HTTP server",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := postgres.RunMigrations(ctx, a.db); err != nil {
				return errors.Wrap(err, "migration failed")
			}
			a.log.Info("Database migration completed successfully")

			a.worker.Start(ctx)

			if a.cfg.Environment == "production" {
				gin.SetMode(gin.ReleaseMode)
			}
			router := transportHttp.NewRouter(transportHttp.RouterConfig{
				AllowedOrigins: a.cfg.AllowedOrigins,
				RequestTimeout: a.cfg.RequestTimeout,
			}, a.handlers(), a.log)

			srv := &http.Server{
				Addr:              ":" + a.cfg.Port,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.WithField("port", a.cfg.Port).Info("Server starting")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return errors.Wrap(err, "server error")
			case <-ctx.Done():
			}
			a.log.Info("Server is shutting down...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errors.Wrap(err, "server forced to shutdown")
			}

			a.log.Info("Server exited gracefully")
			return nil
		},
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			config.LoadEnv()
			cfg := config.LoadConfig()
			log := logger.New(cfg.Environment)
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is required")
			}

			db, err := postgres.Open(cmd.Context(), cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetimeMin)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.RunMigrations(cmd.Context(), db); err != nil {
				return errors.Wrap(err, "migration failed")
			}
			log.Info("Database migration completed successfully")
			return nil
		},
	}

	cleanupCmd = &cobra.Command{
		Use:   "cleanup",
		Short: "Run one cleanup pass and exit",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			a.worker.RunOnce(cmd.Context())
			return nil
		},
	}
)
