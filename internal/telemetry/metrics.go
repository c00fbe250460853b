package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tenderflow"

var (
	// TransitionsTotal — зафиксированные переходы по действию (approved, rejected, ...).
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_total",
		Help:      "Committed tender transitions by history action.",
	}, []string{"action"})

	// TransitionErrorsTotal — неудачные переходы по виду ошибки.
	TransitionErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transition_errors_total",
		Help:      "Failed tender transitions by error kind.",
	}, []string{"kind"})

	// TransitionDuration — длительность транзакции перехода.
	TransitionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "transition_duration_seconds",
		Help:      "Duration of tender transition transactions.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"action"})

	// UnassignedTotal — переходы, для целевой роли которых не нашлось исполнителя.
	UnassignedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "unassigned_total",
		Help:      "Transitions whose target role had no active user.",
	}, []string{"role"})

	// InternalInconsistencyTotal — позиции тендеров, отсутствующие в каталоге.
	InternalInconsistencyTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "internal_inconsistency_total",
		Help:      "Transitions aborted because the position is missing from the catalog.",
	})

	// OverdueTendersTotal — найденные просроченные тендеры.
	OverdueTendersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "overdue_tenders_total",
		Help:      "Overdue tenders detected by the sweep.",
	})

	// IdempotentReplaysTotal — повторные запросы, обслуженные из кеша.
	IdempotentReplaysTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "idempotent_replays_total",
		Help:      "Requests answered from the idempotency store.",
	})

	// NotificationsTotal — обработанные уведомления по виду и результату.
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Notifications handled by kind and outcome.",
	}, []string{"kind", "outcome"})

	// HTTPRequestsTotal — HTTP запросы API.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route pattern and status code.",
	}, []string{"method", "route", "code"})
)
