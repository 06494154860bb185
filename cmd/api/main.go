package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/simplebank/simplebank/internal/api"
	"github.com/simplebank/simplebank/internal/auth"
	"github.com/simplebank/simplebank/internal/config"
	"github.com/simplebank/simplebank/internal/ledger"
	"github.com/simplebank/simplebank/internal/logger"
	"github.com/simplebank/simplebank/internal/metrics"
	"github.com/simplebank/simplebank/internal/ratelimit"
	"github.com/simplebank/simplebank/internal/store"
	"github.com/simplebank/simplebank/internal/store/postgres"
	"github.com/simplebank/simplebank/internal/store/sqlite"
	"github.com/simplebank/simplebank/internal/worker"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Error("store open", "driver", cfg.DBDriver, "err", err)
		os.Exit(1)
	}
	defer st.Close()

	metrics.Init()
	svc := ledger.New(st, ratelimit.NewGuard(cfg.RateInterval))
	tm := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)

	wp := worker.NewPool(2)
	defer wp.Stop()
	go scheduleBackups(ctx, log, wp, st, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.NewRouter(svc, tm),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "driver", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.DBDriver {
	case "sqlite":
		return sqlite.Open(cfg.DBDSN)
	case "postgres":
		return postgres.Open(ctx, cfg.DBDSN)
	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.DBDriver)
	}
}

// scheduleBackups periodically snapshots the store on the worker pool. Only
// the sqlite backend supports backups; anything else is skipped.
func scheduleBackups(ctx context.Context, log *slog.Logger, wp *worker.Pool, st store.Store, cfg config.Config) {
	b, ok := st.(store.Backuper)
	if !ok || cfg.BackupInterval <= 0 {
		return
	}

	ticker := time.NewTicker(cfg.BackupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			wp.Submit(func() {
				path, err := b.Backup(context.Background(), cfg.BackupDir)
				if err != nil {
					log.Error("backup", "err", err)
					return
				}
				metrics.BackupsTotal.Inc()
				log.Info("backup written", "path", path)
			})
		}
	}
}
