package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jwalitptl/medipass-api/internal/config"
	"github.com/jwalitptl/medipass-api/internal/handler/health"
	"github.com/jwalitptl/medipass-api/internal/model"
	"github.com/jwalitptl/medipass-api/internal/repository"
	"github.com/jwalitptl/medipass-api/internal/repository/flatfile"
	"github.com/jwalitptl/medipass-api/internal/repository/postgres"
	"github.com/jwalitptl/medipass-api/internal/service/directory"
	"github.com/jwalitptl/medipass-api/internal/service/event"
	"github.com/jwalitptl/medipass-api/internal/service/persistence"
	"github.com/jwalitptl/medipass-api/internal/service/scheduling"
	"github.com/jwalitptl/medipass-api/pkg/logger"
	"github.com/jwalitptl/medipass-api/pkg/messaging"
	"github.com/jwalitptl/medipass-api/pkg/messaging/redis"
	"github.com/jwalitptl/medipass-api/pkg/metrics"
)

const metricsNamespace = "medipass"

// app holds the long-lived services shared by the commands.
type app struct {
	cfg      *config.Config
	loc      *time.Location
	log      *logger.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	db     *sqlx.DB
	store  repository.SnapshotStore
	broker messaging.Broker

	dir     *directory.Service
	engine  *scheduling.Service
	persist *persistence.Service
}

func newLogger(cfg config.LogConfig) *logger.Logger {
	return logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		JSON:       cfg.JSON,
	})
}

// newApp opens the snapshot store and builds the in-memory services. The broker
// is only dialled when publish is set.
func newApp(ctx context.Context, cfg *config.Config, publish bool) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		loc:      loc,
		log:      newLogger(cfg.Log),
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.NewMetrics(a.registry, metricsNamespace)

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	if publish && cfg.Redis.URL != "" {
		broker, err := redis.NewRedisBroker(redis.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, a.log.Zerolog())
		if err != nil {
			a.log.Warn("event broker unavailable, consultation events will not be published", "error", err.Error())
		} else {
			a.broker = broker
		}
	}
	events := event.NewService(a.broker, cfg.Redis.Channel, a.log, a.metrics)

	clock := func() time.Time { return time.Now().In(loc) }
	a.dir = directory.NewService(
		directory.WithClock(clock),
		directory.WithLogger(a.log),
		directory.WithPublisher(events),
	)
	a.engine = scheduling.NewService(a.dir, scheduling.Options{
		DefaultDuration:   cfg.Scheduling.DefaultDuration,
		AllowPastBookings: cfg.Scheduling.AllowPastBookings,
		Now:               clock,
		Logger:            a.log,
		Metrics:           a.metrics,
		Publisher:         events,
	})
	a.persist = persistence.NewService(a.store, a.dir, a.engine, a.log)
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	var store repository.SnapshotStore
	switch strings.ToLower(a.cfg.Storage.Driver) {
	case "postgres":
		db, err := postgres.NewDB(ctx, a.cfg.Database)
		if err != nil {
			return err
		}
		pg := postgres.NewSnapshotStore(db, a.log)
		if err := pg.Migrate(ctx); err != nil {
			db.Close()
			return err
		}
		a.db = db
		store = pg
	default:
		if err := os.MkdirAll(a.cfg.Storage.DataDir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
		store = flatfile.NewStore(a.cfg.Storage.DataDir, a.loc, a.log)
	}
	a.store = repository.Instrumented(store, a.metrics)
	return nil
}

// pingers lists the external dependencies gating readiness.
func (a *app) pingers() map[string]health.Pinger {
	deps := make(map[string]health.Pinger)
	if a.db != nil {
		deps["database"] = a.db
	}
	if p, ok := a.broker.(health.Pinger); ok {
		deps["redis"] = p
	}
	return deps
}

// bootstrapAdmin creates the configured administrator when the directory has none.
func (a *app) bootstrapAdmin(ctx context.Context, hash func(string) (string, error)) error {
	boot := a.cfg.Bootstrap
	if boot.AdminLogin == "" || len(a.dir.Administrators()) > 0 {
		return nil
	}
	secret, err := hash(boot.AdminSecret)
	if err != nil {
		return fmt.Errorf("bootstrap administrator: %w", err)
	}

	_, err = a.dir.CreateAdministrator(ctx, model.Administrator{
		Person:  model.Person{ID: a.nextPersonID(), FamilyName: "Administrator", GivenName: boot.AdminLogin},
		Account: model.Account{Login: boot.AdminLogin, SecretHash: secret, Active: true},
		Scope:   "all",
	})
	if err != nil {
		return fmt.Errorf("bootstrap administrator: %w", err)
	}
	a.log.Info("bootstrap administrator created", "login", boot.AdminLogin)
	return nil
}

func (a *app) nextPersonID() int {
	highest := 0
	for _, p := range a.dir.Patients() {
		if p.ID > highest {
			highest = p.ID
		}
	}
	for _, p := range a.dir.AllPractitioners() {
		if p.ID > highest {
			highest = p.ID
		}
	}
	for _, ad := range a.dir.Administrators() {
		if ad.ID > highest {
			highest = ad.ID
		}
	}
	return highest + 1
}

func (a *app) close() {
	if a.broker != nil {
		if err := a.broker.Close(); err != nil {
			a.log.Error(err, "failed to close broker")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Error(err, "failed to close database")
		}
	}
}
