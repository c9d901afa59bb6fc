package command

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/joao-brasil/collectflow/internal/config"
	"github.com/joao-brasil/collectflow/internal/dialect"
	"github.com/joao-brasil/collectflow/internal/health"
	"github.com/joao-brasil/collectflow/internal/logging"
	"github.com/joao-brasil/collectflow/internal/metrics"
	"github.com/joao-brasil/collectflow/internal/pool"
	"github.com/joao-brasil/collectflow/internal/ratelimit"
	"github.com/joao-brasil/collectflow/internal/uow"
)

// app holds the long-lived components shared by serve and check.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	sync    func()
	pool    *pool.Pool
	uow     *uow.UnitOfWork
	limiter *ratelimit.Limiter
	checker *health.Checker
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("config.Load(%q): %w", cfgPath, err)
	}

	log, sync, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	d, err := dialect.For(cfg.Database.DriverName())
	if err != nil {
		sync()
		return nil, err
	}

	ds := &cfg.Database
	metrics.ConnectionsIssued.WithLabelValues(ds.Name).Set(0)
	metrics.ConnectionsIdle.WithLabelValues(ds.Name).Set(0)
	metrics.ConnectionsMax.WithLabelValues(ds.Name).Set(float64(ds.MaxConnections))

	p := pool.New(ds, pool.WithLogger(log.Named("pool")))
	limiter := ratelimit.New(ctx, ratelimit.Options{
		Addr:          cfg.Redis.Addr,
		Password:      cfg.Redis.Password,
		DB:            cfg.Redis.DB,
		DialTimeout:   cfg.Redis.DialTimeout,
		ProbeInterval: cfg.Redis.ProbeInterval,
	}, log.Named("ratelimit"))

	return &app{
		cfg:     cfg,
		log:     log,
		sync:    sync,
		pool:    p,
		uow:     uow.New(p, d, uow.WithLogger(log.Named("uow"))),
		limiter: limiter,
		checker: health.NewChecker(p, limiter),
	}, nil
}

// close releases the limiter and the pool, then flushes the logger.
func (a *app) close() {
	if err := a.limiter.Close(); err != nil {
		a.log.Warn("rate limiter close error", zap.Error(err))
	}
	if err := a.pool.Close(); err != nil {
		a.log.Warn("pool close error", zap.Error(err))
	}
	a.log.Info("shutdown complete")
	a.sync()
}

// logReport writes one line per component of a readiness report.
func (a *app) logReport(r *health.Report) {
	for _, comp := range r.Components {
		fields := []zap.Field{
			zap.String("component", comp.Name),
			zap.String("status", string(comp.Status)),
			zap.String("message", comp.Message),
			zap.String("latency", comp.Latency),
		}
		if comp.Status == health.StatusUnhealthy {
			a.log.Warn("component check", fields...)
			continue
		}
		a.log.Info("component check", fields...)
	}
	a.log.Info("overall health", zap.String("status", string(r.Status)))
}
