// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go         — Handler с DI (сервис workflow, справочник, идемпотентность)
//   - routes.go          — регистрация маршрутов
//   - middleware.go      — middleware (logging, recovery, metrics, idempotency)
//   - response.go        — унифицированные JSON-ответы и обработка ошибок
//   - dto.go             — Data Transfer Objects (request/response)
//   - tender_handler.go  — обработчики для /tenders и /tasks
//   - catalog_handler.go — обработчики для /catalog
//   - user_handler.go    — обработчики для /users
//
// Действующий пользователь передаётся в заголовке X-Actor-ID.
// Аутентификация выполняется до API (gateway).
package api
