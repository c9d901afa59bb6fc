package command

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joao-brasil/collectflow/internal/api"
	"github.com/joao-brasil/collectflow/internal/ratelimit"
	"github.com/joao-brasil/collectflow/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP gateway and the metrics listener",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	cfg := a.cfg
	log := a.log
	log.Info("starting CollectFlow API",
		zap.String("version", Version),
		zap.String("environment", cfg.Server.Environment),
		zap.String("pool", cfg.Database.Name),
		zap.Int("max_connections", cfg.Database.MaxConnections),
		zap.Bool("redis", a.limiter.Enabled()))
	if len(cfg.Auth.APIKeys) == 0 {
		log.Warn("no API keys configured, every /api/v1 request will be rejected")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := api.NewRouter(api.Deps{
		Pratiche:    service.NewPratiche(a.uow),
		Movimenti:   service.NewMovimenti(a.uow),
		Email:       service.NewEmail(a.uow),
		SMS:         service.NewSMS(a.uow),
		Health:      a.checker,
		Limiter:     a.limiter,
		Log:         log.Named("http"),
		APIKeys:     cfg.Auth.APIKeys,
		ReadRule:    ratelimit.Rule{Name: "read", Limit: cfg.RateLimit.ReadLimit, Window: cfg.RateLimit.Window},
		WriteRule:   ratelimit.Rule{Name: "write", Limit: cfg.RateLimit.WriteLimit, Window: cfg.RateLimit.Window},
		CORSOrigins: cfg.Server.CORSOrigins,
		Version:     Version,
	})

	// Prometheus scrape endpoint
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler:      metricsMux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("metrics server listening", zap.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server error", zap.Error(err))
		}
	}()

	a.logReport(a.checker.Check(ctx))

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		log.Info("received signal, shutting down gracefully", zap.String("signal", sig.String()))
	case err = <-errCh:
		log.Error("HTTP server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Shutdown in reverse order; the limiter and the pool close in a.close.
	if serr := httpServer.Shutdown(shutdownCtx); serr != nil {
		log.Warn("HTTP server shutdown error", zap.Error(serr))
	}
	if serr := metricsServer.Shutdown(shutdownCtx); serr != nil {
		log.Warn("metrics server shutdown error", zap.Error(serr))
	}
	return err
}
