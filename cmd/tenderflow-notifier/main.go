// Tenderflow Notifier — доставка уведомлений о событиях тендеров.
//
// Notifier:
//   - Потребляет notifier.transitions и notifier.overdue из RabbitMQ
//   - Дополняет события названием шага и данными получателя
//   - Отправляет их на webhook (notifier.webhook_url) или пишет в лог
//
// Notifiers масштабируются горизонтально.
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

	"github.com/shaiso/Tenderflow/internal/catalog"
	"github.com/shaiso/Tenderflow/internal/config"
	"github.com/shaiso/Tenderflow/internal/mq"
	"github.com/shaiso/Tenderflow/internal/notifier"
	"github.com/shaiso/Tenderflow/internal/repo"
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
	logger.Info("starting tenderflow-notifier")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("tenderflow-notifier failed", "error", err)
		os.Exit(1)
	}
	logger.Info("tenderflow-notifier stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.RabbitMQ.URL == "" {
		return errors.New("rabbitmq.url is required")
	}

	// DB pool: справочник пользователей и каталог шагов
	pool, err := repo.NewPool(ctx, repo.PoolConfig{DSN: cfg.DB.URL, MaxConns: cfg.DB.MaxConns})
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("database connected")

	cat, err := stepCatalog(ctx, repo.NewStepRepo(pool), cfg.Catalog.File, logger)
	if err != nil {
		return err
	}

	// RabbitMQ
	mqConn, err := mq.NewConnection(ctx, mq.ConnectionConfig{
		URL:    cfg.RabbitMQ.URL,
		Name:   "tenderflow-notifier",
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

	var sender notifier.Sender = notifier.LogSender{Logger: logger}
	if cfg.Notifier.WebhookURL != "" {
		webhook, err := notifier.NewWebhookSender(notifier.WebhookConfig{
			URL:         cfg.Notifier.WebhookURL,
			Timeout:     cfg.Notifier.Timeout,
			MaxAttempts: cfg.Notifier.MaxAttempts,
			Logger:      logger,
		})
		if err != nil {
			return err
		}
		sender = webhook
		logger.Info("webhook delivery enabled", "url", cfg.Notifier.WebhookURL)
	} else {
		logger.Info("notifier.webhook_url is empty, notifications are only logged")
	}

	n := notifier.New(notifier.Config{
		Conn:    mqConn,
		Sender:  sender,
		Catalog: cat,
		Users:   repo.NewUserRepo(pool),
		Logger:  logger,
	})

	if err := n.Start(ctx); err != nil {
		return err
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !mqConn.IsConnected() {
			http.Error(w, "rabbitmq disconnected", http.StatusServiceUnavailable)
			return
		}
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

	// Ожидаем сигнал завершения
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)

	n.Stop()
	return nil
}

// stepCatalog читает каталог из таблицы steps; пустая таблица (API ещё
// не стартовал) — каталог из файла или эталон.
func stepCatalog(ctx context.Context, steps *repo.StepRepo, file string, logger *slog.Logger) (*catalog.Catalog, error) {
	defs, err := steps.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(defs) == 0 {
		logger.Warn("steps table is empty, using configured catalog")
		return catalog.Load(file)
	}
	return catalog.New(defs)
}
