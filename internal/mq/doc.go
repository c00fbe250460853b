// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация событий тендеров
//   - consumer.go   — потребление сообщений из очередей
//
// Типы сообщений:
//   - tender.transitioned — переход зафиксирован (created, approved, rejected, cancelled)
//   - tender.overdue      — срок текущего шага истёк
//
// Exchanges:
//   - tenderflow.events — события тендеров (topic)
//   - tenderflow.dlq    — dead letter queue
package mq
