package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Tenderflow/internal/domain"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeEvents Exchange = "tenderflow.events"
	ExchangeDLQ    Exchange = "tenderflow.dlq"
)

// Queues — имена очередей.
const (
	QueueNotifierTransitions Queue = "notifier.transitions"
	QueueNotifierOverdue     Queue = "notifier.overdue"
	QueueDLQNotifications    Queue = "dlq.notifications"
)

// Routing keys и шаблоны привязки.
const (
	RoutingKeyTransitionPrefix RoutingKey = "tender.transitioned"
	RoutingKeyTransitionAll    RoutingKey = "tender.transitioned.*"
	RoutingKeyOverdue          RoutingKey = "tender.overdue"
	RoutingKeyDLQNotifications RoutingKey = "notifications"
)

// TransitionRoutingKey — ключ события перехода: tender.transitioned.<action>.
func TransitionRoutingKey(action domain.HistoryAction) RoutingKey {
	return RoutingKeyTransitionPrefix + "." + RoutingKey(action)
}

// SetupTopology объявляет обменники, очереди и привязки. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareExchanges(ch); err != nil {
			return err
		}

		if err := declareQueues(ch); err != nil {
			return err
		}

		return bindQueues(ch)
	})
}

// declareExchanges создаёт обменники.
func declareExchanges(ch *amqp.Channel) error {
	exchanges := []struct {
		name Exchange
		kind string
	}{
		{ExchangeEvents, amqp.ExchangeTopic},
		{ExchangeDLQ, amqp.ExchangeDirect},
	}

	for _, ex := range exchanges {
		err := ch.ExchangeDeclare(
			string(ex.name), // name
			ex.kind,         // type
			true,            // durable
			false,           // auto-deleted
			false,           // internal
			false,           // no-wait
			nil,             // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}

	return nil
}

// declareQueues создаёт очереди.
func declareQueues(ch *amqp.Channel) error {
	// Уведомления, которые не удалось доставить повторно, уходят в DLQ.
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQNotifications),
	}

	queues := []struct {
		name Queue
		args amqp.Table
	}{
		{QueueNotifierTransitions, dlqArgs},
		{QueueNotifierOverdue, dlqArgs},
		{QueueDLQNotifications, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}

	return nil
}

// bindQueues привязывает очереди к обменникам.
func bindQueues(ch *amqp.Channel) error {
	for _, b := range bindings() {
		err := ch.QueueBind(
			string(b.queue),      // queue name
			string(b.routingKey), // routing key
			string(b.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}

type binding struct {
	queue      Queue
	routingKey RoutingKey
	exchange   Exchange
}

func bindings() []binding {
	return []binding{
		{QueueNotifierTransitions, RoutingKeyTransitionAll, ExchangeEvents},
		{QueueNotifierOverdue, RoutingKeyOverdue, ExchangeEvents},
		{QueueDLQNotifications, RoutingKeyDLQNotifications, ExchangeDLQ},
	}
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Tenderflow RabbitMQ Topology:

    tenderflow.events (topic)
    ├── notifier.transitions [routing: tender.transitioned.*]
    │       Publisher: API (после коммита перехода)
    │       Consumer: Notifier
    │       DLQ: dlq.notifications
    └── notifier.overdue [routing: tender.overdue]
            Publisher: Scheduler
            Consumer: Notifier
            DLQ: dlq.notifications

    tenderflow.dlq (direct)
    └── dlq.notifications [routing: notifications]
            Manual processing
  `
}
