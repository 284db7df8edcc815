package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/medipass-api/internal/config"
	authhandler "github.com/jwalitptl/medipass-api/internal/handler/auth"
	"github.com/jwalitptl/medipass-api/internal/handler/consultation"
	"github.com/jwalitptl/medipass-api/internal/handler/health"
	"github.com/jwalitptl/medipass-api/internal/handler/patient"
	"github.com/jwalitptl/medipass-api/internal/handler/practitioner"
	"github.com/jwalitptl/medipass-api/internal/handler/prometheus"
	reporthandler "github.com/jwalitptl/medipass-api/internal/handler/report"
	"github.com/jwalitptl/medipass-api/internal/middleware"
	"github.com/jwalitptl/medipass-api/internal/repository/flatfile"
	"github.com/jwalitptl/medipass-api/internal/repository/postgres"
	"github.com/jwalitptl/medipass-api/internal/router"
	"github.com/jwalitptl/medipass-api/internal/service/auth"
	"github.com/jwalitptl/medipass-api/internal/service/report"
	"github.com/jwalitptl/medipass-api/internal/worker"
	jwtauth "github.com/jwalitptl/medipass-api/pkg/auth"
	"github.com/jwalitptl/medipass-api/pkg/security"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "medipass-api",
		Short:         "Medical practice scheduling API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yml (default ./config.yml or ./config/config.yml)")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(exportCmd(&configPath))
	rootCmd.AddCommand(migrateCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}
}

func exportCmd(configPath *string) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Copy the stored snapshot into flat files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			if dir == "" {
				return errors.New("--dir is required")
			}
			return runExport(cmd.Context(), cfg, dir)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "target directory for the exported files")
	return cmd
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the postgres snapshot tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			db, err := postgres.NewDB(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := postgres.NewSnapshotStore(db, nil).Migrate(ctx); err != nil {
				return err
			}
			log.Info().Str("database", cfg.Database.Name).Msg("schema applied")
			return nil
		},
	}
}

func runServer(cfg *config.Config) error {
	if cfg.JWT.Secret == "" {
		return errors.New("jwt secret is required (MEDIPASS_JWT_SECRET)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.close()

	restored, err := a.persist.Restore(ctx)
	if err != nil {
		return err
	}
	if restored.Skipped > 0 {
		a.log.Warn("malformed rows skipped during restore", "skipped", restored.Skipped)
	}

	authSvc := auth.NewService(
		a.dir,
		security.NewBcryptHasher(bcrypt.DefaultCost),
		jwtauth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiry, nil),
		cfg.JWT.Expiry,
		a.log,
	)
	if err := a.bootstrapAdmin(ctx, authSvc.HashSecret); err != nil {
		return err
	}

	r := router.NewRouter(middleware.NewAuthMiddleware(authSvc), router.Handlers{
		Auth:         authhandler.NewHandler(authSvc, a.dir),
		Patient:      patient.NewHandler(a.dir, a.engine, a.loc),
		Practitioner: practitioner.NewHandler(a.dir, a.engine, authSvc, a.loc),
		Consultation: consultation.NewHandler(a.engine, a.loc),
		Report:       reporthandler.NewHandler(report.NewService(a.engine, a.dir), a.loc),
		Health:       health.NewHandler(a.pingers()),
		Prometheus:   prometheus.New(a.registry),
	}, a.metrics, router.RouterConfig{
		RateLimit: rate.Limit(cfg.Server.RateLimit),
		RateBurst: cfg.Server.RateBurst,
		Release:   !strings.EqualFold(cfg.Log.Level, "debug"),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	workerCtx, stopWorker := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.NewSnapshotWorker(a.persist, cfg.Storage.SnapshotInterval, a.log).Start(workerCtx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		a.log.Info("server listening", "addr", srv.Addr, "storage", cfg.Storage.Driver, "gin_mode", gin.Mode())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		a.log.Info("shutting down server...")
	case err := <-serveErr:
		if err != nil {
			a.log.Error(err, "server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error(err, "server forced to shutdown")
	}

	// requests are drained; the worker takes the final snapshot
	stopWorker()
	wg.Wait()

	a.log.Info("server exited properly")
	return nil
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	if cfg.Server.ShutdownTimeout > 0 {
		return cfg.Server.ShutdownTimeout
	}
	return 10 * time.Second
}

func runExport(ctx context.Context, cfg *config.Config, dir string) error {
	a, err := newApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.close()

	res, err := a.persist.Restore(ctx)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	if err := a.persist.Export(ctx, flatfile.NewStore(dir, a.loc, a.log)); err != nil {
		return err
	}
	a.log.Info("snapshot exported",
		"dir", dir,
		"patients", res.Patients,
		"practitioners", res.Practitioners,
		"consultations", res.Consultations,
	)
	return nil
}
