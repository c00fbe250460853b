// Package telemetry обеспечивает наблюдаемость системы.
//
// Включает:
//   - logging.go — structured logging через slog и логгер в контексте
//     (WithLogger, LoggerOr, FromContext)
//   - metrics.go — Prometheus метрики
//
// Все процессы используют единый формат логирования
// и экспортируют метрики на /metrics endpoint. HTTP middleware и
// consumer кладут в контекст логгер запроса или сообщения.
package telemetry
