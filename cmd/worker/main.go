package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/medipass-api/internal/config"
	"github.com/jwalitptl/medipass-api/internal/handler/health"
	promhandler "github.com/jwalitptl/medipass-api/internal/handler/prometheus"
	"github.com/jwalitptl/medipass-api/internal/service/audit"
	"github.com/jwalitptl/medipass-api/pkg/logger"
	"github.com/jwalitptl/medipass-api/pkg/messaging"
	"github.com/jwalitptl/medipass-api/pkg/messaging/redis"
	"github.com/jwalitptl/medipass-api/pkg/metrics"
)

func main() {
	var (
		configPath string
		probeAddr  string
	)

	rootCmd := &cobra.Command{
		Use:           "medipass-worker",
		Short:         "Writes the consultation audit trail from published events",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			return run(cfg, probeAddr)
		},
	}
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to config.yml")
	rootCmd.Flags().StringVar(&probeAddr, "probe-addr", ":8081", "address serving /health/live, /health/ready and /metrics")

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("worker failed")
		os.Exit(1)
	}
}

func run(cfg *config.Config, probeAddr string) error {
	if cfg.Redis.URL == "" {
		return errors.New("redis url is required (MEDIPASS_REDIS_URL)")
	}

	l := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		JSON:       cfg.Log.JSON,
	}).WithFields(map[string]interface{}{"worker_id": workerID()})

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, l.Zerolog())
	if err != nil {
		return fmt.Errorf("failed to create redis broker: %w", err)
	}
	defer broker.Close()

	auditPath := cfg.Log.AuditFile
	if auditPath == "" {
		auditPath = "stdout"
	} else if err := os.MkdirAll(filepath.Dir(auditPath), 0o755); err != nil {
		return fmt.Errorf("failed to create audit directory: %w", err)
	}
	sink, err := audit.NewFileLogger(auditPath)
	if err != nil {
		return fmt.Errorf("failed to open audit trail: %w", err)
	}

	registry := prometheus.NewRegistry()
	auditor := audit.NewService(sink, metrics.NewMetrics(registry, "medipass_worker"))
	defer auditor.Sync()

	probes := setupProbes(probeAddr, registry, broker, l)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = probes.Shutdown(ctx)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	l.Info("worker started", "channel", cfg.Redis.Channel, "audit_file", auditPath)
	err = messaging.Consume(ctx, broker, cfg.Redis.Channel, auditor.Handle, func(err error) {
		l.Warn("dropping malformed event", "error", err.Error())
	})
	if err != nil {
		return fmt.Errorf("subscription failed: %w", err)
	}
	l.Info("worker shutting down")
	return nil
}

func setupProbes(addr string, gatherer prometheus.Gatherer, broker messaging.Broker, l *logger.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	deps := map[string]health.Pinger{}
	if p, ok := broker.(health.Pinger); ok {
		deps["redis"] = p
	}
	probes := health.NewHandler(deps)
	r.GET("/health/live", probes.LivenessCheck)
	r.GET("/health/ready", probes.ReadinessCheck)
	r.GET("/metrics", promhandler.New(gatherer).Handler())

	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error(err, "probe server failed")
		}
	}()
	return srv
}

func workerID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("worker-%s-%d", hostname, time.Now().UnixNano())
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
