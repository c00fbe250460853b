// Package idempotency дедуплицирует повторы клиентских запросов
// по заголовку Idempotency-Key. Ответы хранятся в Redis.
package idempotency
