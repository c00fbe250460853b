// Tenderflow Scheduler — проверка просроченных шагов.
//
// Scheduler:
//   - По cron-выражению (scheduler.cron) ищет активные тендеры с истёкшим сроком
//   - Публикует tender.overdue для каждого
//   - Работает только лидер (pg_try_advisory_lock), остальные экземпляры ждут
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Tenderflow/internal/config"
	"github.com/shaiso/Tenderflow/internal/mq"
	"github.com/shaiso/Tenderflow/internal/repo"
	"github.com/shaiso/Tenderflow/internal/scheduler"
	"github.com/shaiso/Tenderflow/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := telemetry.SetupLogger(cfg.Log.Level, cfg.Log.Format)
	logger.Info("starting tenderflow-scheduler")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("tenderflow-scheduler failed", "error", err)
		os.Exit(1)
	}
	logger.Info("tenderflow-scheduler stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.RabbitMQ.URL == "" {
		return errors.New("rabbitmq.url is required: overdue events have no other destination")
	}

	// DB pool
	pool, err := repo.NewPool(ctx, repo.PoolConfig{DSN: cfg.DB.URL, MaxConns: cfg.DB.MaxConns})
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("database connected")

	// RabbitMQ
	mqConn, err := mq.NewConnection(ctx, mq.ConnectionConfig{
		URL:    cfg.RabbitMQ.URL,
		Name:   "tenderflow-scheduler",
		Logger: logger,
	})
	if err != nil {
		return err
	}
	defer mqConn.Close()

	if err := mq.SetupTopology(ctx, mqConn); err != nil {
		return err
	}
	logger.Info("RabbitMQ connected")

	leader := scheduler.NewAdvisoryLeader(pool, scheduler.DefaultLockKey, logger)
	defer leader.Resign(context.Background())

	sched, err := scheduler.New(scheduler.Config{
		Store:     repo.NewTenderRepo(pool),
		Publisher: mq.NewPublisher(mqConn, logger),
		Elector:   leader,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              cfg.Metrics.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	// Блокируется до сигнала завершения
	return sched.Run(ctx, cfg.Scheduler.Cron)
}
