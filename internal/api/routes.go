package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		Recovery(h.logger),
		Metrics(),
		Logging(h.logger),
	)
	// Изменяющие запросы дополнительно проходят через Idempotency.
	write := Chain(chain, Idempotency(h.idempotency, h.logger))

	// Tenders
	mux.Handle("GET /api/v1/tenders", chain(http.HandlerFunc(h.ListTenders)))
	mux.Handle("POST /api/v1/tenders", write(http.HandlerFunc(h.CreateTender)))
	mux.Handle("GET /api/v1/tenders/{id}", chain(http.HandlerFunc(h.GetTender)))
	mux.Handle("POST /api/v1/tenders/{id}/approve", write(http.HandlerFunc(h.ApproveTender)))
	mux.Handle("POST /api/v1/tenders/{id}/reject", write(http.HandlerFunc(h.RejectTender)))
	mux.Handle("POST /api/v1/tenders/{id}/cancel", write(http.HandlerFunc(h.CancelTender)))
	mux.Handle("GET /api/v1/tenders/{id}/timeline", chain(http.HandlerFunc(h.GetTimeline)))

	// Tasks
	mux.Handle("GET /api/v1/tasks", chain(http.HandlerFunc(h.MyTasks)))
	mux.Handle("GET /api/v1/tasks/{assignee}", chain(http.HandlerFunc(h.GetTasks)))

	// Catalog
	mux.Handle("GET /api/v1/catalog", chain(http.HandlerFunc(h.GetCatalog)))
	mux.Handle("GET /api/v1/catalog/phases/{phase}", chain(http.HandlerFunc(h.GetPhase)))

	// Users
	mux.Handle("GET /api/v1/users", chain(http.HandlerFunc(h.ListUsers)))
	mux.Handle("POST /api/v1/users", write(http.HandlerFunc(h.CreateUser)))
	mux.Handle("GET /api/v1/users/{id}", chain(http.HandlerFunc(h.GetUser)))
}
