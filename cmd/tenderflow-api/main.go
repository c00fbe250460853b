// Tenderflow API — HTTP API движка переходов тендеров.
//
// API:
//   - Применяет миграции и синхронизирует каталог шагов с БД
//   - Обслуживает /api/v1 (тендеры, очереди задач, каталог, пользователи)
//   - Публикует tender.transitioned в RabbitMQ, если он настроен
//   - Хранит ответы на запросы с Idempotency-Key в Redis, если он настроен
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

	"github.com/shaiso/Tenderflow/internal/actor"
	"github.com/shaiso/Tenderflow/internal/api"
	"github.com/shaiso/Tenderflow/internal/catalog"
	"github.com/shaiso/Tenderflow/internal/config"
	"github.com/shaiso/Tenderflow/internal/idempotency"
	"github.com/shaiso/Tenderflow/internal/mq"
	"github.com/shaiso/Tenderflow/internal/repo"
	"github.com/shaiso/Tenderflow/internal/telemetry"
	"github.com/shaiso/Tenderflow/internal/workflow"
)

var startTime = time.Now()

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	// Инициализируем structured logging
	logger := telemetry.SetupLogger(cfg.Log.Level, cfg.Log.Format)
	logger.Info("starting tenderflow-api")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("tenderflow-api failed", "error", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	// Миграции
	if cfg.DB.Migrations {
		if err := repo.Migrate(cfg.DB.URL, logger); err != nil {
			return err
		}
	}

	// Подключаемся к базе данных
	pool, err := repo.NewPool(ctx, repo.PoolConfig{DSN: cfg.DB.URL, MaxConns: cfg.DB.MaxConns})
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("connected to database")

	// Каталог шагов: файл или эталон, сверенный с таблицей steps
	base, err := catalog.Load(cfg.Catalog.File)
	if err != nil {
		return err
	}
	cat, synced, err := repo.NewStepRepo(pool).Sync(ctx, base)
	if err != nil {
		return err
	}
	logger.Info("step catalog loaded",
		"phases", cat.PhaseCount(),
		"steps", cat.TotalSteps(),
		"synced", synced,
		"file", cfg.Catalog.File,
	)

	// Создаём репозитории
	users := repo.NewUserRepo(pool)
	tenders := repo.NewTenderRepo(pool)

	resolver, err := actor.New(actor.Config{
		Strategy:  actor.Strategy(cfg.Workflow.Resolver),
		Directory: users,
		Workload:  tenders,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	supervisory, err := cfg.Workflow.Roles()
	if err != nil {
		return err
	}

	wfCfg := workflow.Config{
		Store:            repo.NewStore(pool),
		Catalog:          cat,
		Resolver:         resolver,
		DefaultDeadline:  cfg.Workflow.DefaultDeadline,
		BlockUnassigned:  cfg.Workflow.BlockUnassigned,
		SupervisoryRoles: supervisory,
		Logger:           logger,
	}

	// RabbitMQ (необязательно)
	if cfg.RabbitMQ.URL != "" {
		mqConn, err := mq.NewConnection(ctx, mq.ConnectionConfig{
			URL:    cfg.RabbitMQ.URL,
			Name:   "tenderflow-api",
			Logger: logger,
		})
		if err != nil {
			logger.Warn("RabbitMQ not available, transition events disabled", "error", err)
		} else {
			defer mqConn.Close()
			if err := mq.SetupTopology(ctx, mqConn); err != nil {
				logger.Warn("failed to setup topology", "error", err)
			}
			wfCfg.Events = mq.NewPublisher(mqConn, logger)
			logger.Info("RabbitMQ connected")
		}
	}

	svc, err := workflow.New(wfCfg)
	if err != nil {
		return err
	}

	apiCfg := api.Config{
		Tenders: svc,
		Users:   users,
		Logger:  logger,
	}

	// Redis (необязательно)
	if cfg.Redis.Addr != "" {
		store, err := idempotency.New(ctx, idempotency.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.IdempotencyTTL,
			Logger:   logger,
		})
		if err != nil {
			logger.Warn("redis not available, Idempotency-Key ignored", "error", err)
		} else {
			defer store.Close()
			apiCfg.Idempotency = store
		}
	}

	handler := api.NewHandler(apiCfg)

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime).Round(time.Second))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Ожидаем сигнал завершения
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	return nil
}
