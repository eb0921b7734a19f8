// Package main boots the inventory point-of-sale HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/fairyhunter13/inventory-pos-service/internal/config"
	httpapi "github.com/fairyhunter13/inventory-pos-service/internal/http"
	"github.com/fairyhunter13/inventory-pos-service/internal/obs"
	"github.com/fairyhunter13/inventory-pos-service/internal/queue"
	"github.com/fairyhunter13/inventory-pos-service/internal/sales"
	"github.com/fairyhunter13/inventory-pos-service/internal/store"
)

func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	otelCore, shutdownTelemetry, err := obs.SetupTelemetry(ctx, cfg)
	var extra []zapcore.Core
	if otelCore != nil {
		extra = append(extra, otelCore)
	}
	obs.InitLogger(cfg.LogLevel, extra...)
	defer obs.Sync()
	if err != nil {
		obs.Logger.Warnw("telemetry_disabled", "error", err)
	}
	obs.Logger.Infow("service_starting", "version", config.ServiceVersion, "store_driver", cfg.StoreDriver)

	policy, err := sales.ParseItemPolicy(cfg.SaleItemPolicy)
	if err != nil {
		obs.Logger.Errorw("invalid_config", "error", err)
		os.Exit(1)
	}

	st, err := store.Open(cfg)
	if err != nil {
		obs.Logger.Errorw("store_open_failed", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	if cfg.SeedDemo {
		seeded, err := store.SeedDemo(ctx, st, time.Now().UTC())
		if err != nil {
			obs.Logger.Errorw("seed_demo_failed", "error", err)
			os.Exit(1)
		}
		obs.Logger.Infow("seed_demo", "seeded", seeded)
	}

	pub := queue.NewPublisher(cfg)
	mgr := queue.NewManager(cfg, queue.New(128), pub)
	mgr.Start(ctx)

	sp := sales.New(st,
		sales.WithPolicy(policy),
		sales.WithAlertSink(mgr),
		sales.WithLimits(cfg.SalesListLimit, cfg.DashboardRecentSales, cfg.DashboardTopProducts),
	)
	app := httpapi.NewApp(cfg, st, sp, mgr)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(app),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		obs.Logger.Infow("http_listen", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			obs.Logger.Errorw("http_server_error", "error", err)
			os.Exit(1)
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigc
	obs.Logger.Infow("shutdown_signal", "signal", s.String())

	// Writes answer 503 first; in-flight sales finish before alert intake closes.
	app.StartShutdown()
	ctxSrv, cancelSrv := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelSrv()
	if err := srv.Shutdown(ctxSrv); err != nil {
		obs.Logger.Errorw("http_shutdown_error", "error", err)
	}

	mgr.CloseIntake()
	obs.Logger.Infow("shutdown_drain_begin", "backlog_size", mgr.BacklogSize(), "worker_count", mgr.WorkerCount())
	ctxDrain, cancelDrain := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelDrain()
	if drained := mgr.DrainUntil(ctxDrain); !drained {
		obs.Logger.Warnw("shutdown_drain_timeout", "backlog_size", mgr.BacklogSize())
	} else {
		obs.Logger.Infow("shutdown_drain_complete")
	}
	mgr.Stop()

	if err := pub.Close(); err != nil {
		obs.Logger.Warnw("publisher_close_error", "error", err)
	}
	if err := st.Close(); err != nil {
		obs.Logger.Warnw("store_close_error", "error", err)
	}
	ctxTel, cancelTel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelTel()
	if err := shutdownTelemetry(ctxTel); err != nil {
		obs.Logger.Warnw("telemetry_shutdown_error", "error", err)
	}
	obs.Logger.Infow("service_stopped")
}
