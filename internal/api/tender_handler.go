package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/shaiso/Tenderflow/internal/domain"
	"github.com/shaiso/Tenderflow/internal/workflow"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// ListTenders возвращает список тендеров.
// GET /api/v1/tenders?status=...&limit=...&offset=...
func (h *Handler) ListTenders(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", defaultListLimit)
	if err != nil || limit < 1 || limit > maxListLimit {
		BadRequest(w, "invalid limit")
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil || offset < 0 {
		BadRequest(w, "invalid offset")
		return
	}

	tenders, err := h.tenders.ListTenders(r.Context(), workflow.ListFilter{
		Status: domain.TenderStatus(r.URL.Query().Get("status")),
		Limit:  limit,
		Offset: offset,
	})
	if HandleError(w, h.log(r), err) {
		return
	}

	result := make([]TenderResponse, len(tenders))
	for i, t := range tenders {
		result[i] = h.tenderResponse(t)
	}

	List(w, result, len(result))
}

// CreateTender создаёт тендер на первом шаге.
// POST /api/v1/tenders
func (h *Handler) CreateTender(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req CreateTenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	tender, err := h.tenders.CreateTender(r.Context(), workflow.CreateTenderInput{
		Title:       req.Title,
		Description: req.Description,
		Amount:      req.Amount,
		Metadata:    req.Metadata,
		CreatedBy:   actorID,
		Deadline:    req.Deadline,
	})
	if HandleError(w, h.log(r), err) {
		return
	}

	Created(w, h.tenderResponse(*tender))
}

// GetTender возвращает тендер по ID.
// GET /api/v1/tenders/{id}
func (h *Handler) GetTender(w http.ResponseWriter, r *http.Request) {
	id, ok := tenderIDFromPath(w, r)
	if !ok {
		return
	}

	tender, err := h.tenders.GetTender(r.Context(), id)
	if HandleError(w, h.log(r), err) {
		return
	}

	Success(w, h.tenderResponse(*tender))
}

// ApproveTender одобряет текущий шаг.
// POST /api/v1/tenders/{id}/approve
func (h *Handler) ApproveTender(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.tenders.Approve)
}

// RejectTender возвращает тендер на доработку.
// POST /api/v1/tenders/{id}/reject
func (h *Handler) RejectTender(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.tenders.Reject)
}

// CancelTender отменяет тендер.
// POST /api/v1/tenders/{id}/cancel
func (h *Handler) CancelTender(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.tenders.Cancel)
}

// GetTimeline возвращает журнал тендера с описаниями шагов.
// GET /api/v1/tenders/{id}/timeline
func (h *Handler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	id, ok := tenderIDFromPath(w, r)
	if !ok {
		return
	}

	timeline, err := h.tenders.Timeline(r.Context(), id)
	if HandleError(w, h.log(r), err) {
		return
	}

	List(w, timeline, len(timeline))
}

// MyTasks возвращает очередь пользователя из заголовка X-Actor-ID.
// GET /api/v1/tasks
func (h *Handler) MyTasks(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	tasks, err := h.tenders.TasksForActor(r.Context(), actorID)
	if HandleError(w, h.log(r), err) {
		return
	}

	List(w, tasks, len(tasks))
}

// GetTasks возвращает очередь пользователя или роли.
// GET /api/v1/tasks/{assignee}, где assignee — ID пользователя или имя роли
func (h *Handler) GetTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tenders.GetTasks(r.Context(), r.PathValue("assignee"))
	if HandleError(w, h.log(r), err) {
		return
	}

	List(w, tasks, len(tasks))
}

// --- Helpers ---

type transitionFunc func(ctx context.Context, in workflow.TransitionInput) (*domain.Tender, error)

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, apply transitionFunc) {
	id, ok := tenderIDFromPath(w, r)
	if !ok {
		return
	}
	actorID, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	// Тело необязательно.
	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(w, "invalid request body")
		return
	}

	tender, err := apply(r.Context(), workflow.TransitionInput{
		TenderID: id,
		ActorID:  actorID,
		Comments: req.Comments,
		Deadline: req.Deadline,
	})
	if HandleError(w, h.log(r), err) {
		return
	}

	Success(w, h.tenderResponse(*tender))
}

func (h *Handler) tenderResponse(t domain.Tender) TenderResponse {
	var step *domain.StepDefinition
	if def, err := h.tenders.Catalog().Step(t.Position()); err == nil {
		step = &def
	}
	return TenderFromDomain(t, step)
}

func tenderIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid tender id")
		return uuid.Nil, false
	}
	return id, true
}

// actorFromRequest читает ID действующего пользователя из X-Actor-ID.
func actorFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.Header.Get(HeaderActorID)
	if raw == "" {
		BadRequest(w, "missing "+HeaderActorID+" header")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		BadRequest(w, "invalid "+HeaderActorID+" header")
		return uuid.Nil, false
	}
	return id, true
}

func intParam(r *http.Request, name string, defaultVal int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(s)
}
