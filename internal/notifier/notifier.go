package notifier

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/shaiso/Tenderflow/internal/catalog"
	"github.com/shaiso/Tenderflow/internal/domain"
	"github.com/shaiso/Tenderflow/internal/mq"
)

const defaultPrefetch = 5

// UserLookup — поиск получателя уведомления.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// Notifier потребляет события тендеров и доставляет уведомления.
//
// Notifier — stateless компонент: несколько экземпляров могут
// потреблять из одних очередей.
type Notifier struct {
	conn     *mq.Connection
	sender   Sender
	catalog  *catalog.Catalog
	users    UserLookup
	prefetch int

	consumers []*mq.Consumer

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Notifier.
type Config struct {
	Conn *mq.Connection

	// Sender — способ доставки (nil — LogSender).
	Sender Sender

	// Catalog — для названия шага и роли (nil — встроенный каталог).
	Catalog *catalog.Catalog

	// Users — для данных получателя (опционально).
	Users UserLookup

	Prefetch int
	Logger   *slog.Logger
}

// New создаёт новый Notifier.
func New(cfg Config) *Notifier {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sender := cfg.Sender
	if sender == nil {
		sender = LogSender{Logger: logger}
	}

	cat := cfg.Catalog
	if cat == nil {
		cat = catalog.MustDefault()
	}

	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = defaultPrefetch
	}

	return &Notifier{
		conn:     cfg.Conn,
		sender:   sender,
		catalog:  cat,
		users:    cfg.Users,
		prefetch: prefetch,
		logger:   logger,
	}
}

// Start запускает consumers для notifier.transitions и notifier.overdue.
func (n *Notifier) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	n.cancelFunc = cancel

	queues := []struct {
		queue   mq.Queue
		handler mq.Handler
	}{
		{mq.QueueNotifierTransitions, n.handleTransition},
		{mq.QueueNotifierOverdue, n.handleOverdue},
	}

	for _, q := range queues {
		consumer := mq.NewConsumer(n.conn, n.logger, mq.ConsumerConfig{
			Queue:    q.queue,
			Handler:  q.handler,
			Prefetch: n.prefetch,
		})
		n.consumers = append(n.consumers, consumer)

		n.wg.Add(1)
		go func(queue mq.Queue) {
			defer n.wg.Done()
			if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				n.logger.Error("notification consumer error", "queue", queue, "error", err)
			}
		}(q.queue)
	}

	n.logger.Info("notifier started")
	return nil
}

// Stop останавливает consumers и ждёт их завершения.
func (n *Notifier) Stop() {
	n.logger.Info("stopping notifier...")

	if n.cancelFunc != nil {
		n.cancelFunc()
	}
	for _, c := range n.consumers {
		c.Stop()
	}

	n.wg.Wait()
	n.logger.Info("notifier stopped")
}
