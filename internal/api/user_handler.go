package api

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Tenderflow/internal/domain"
)

// ListUsers возвращает пользователей справочника.
// GET /api/v1/users?role=...
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	var role domain.Role
	if s := r.URL.Query().Get("role"); s != "" {
		parsed, err := domain.ParseRole(s)
		if err != nil {
			BadRequest(w, err.Error())
			return
		}
		role = parsed
	}

	users, err := h.users.List(r.Context(), role)
	if HandleError(w, h.log(r), err) {
		return
	}

	List(w, users, len(users))
}

// CreateUser добавляет пользователя в справочник.
// POST /api/v1/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		BadRequest(w, "name is required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		BadRequest(w, "invalid email")
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	user := &domain.User{
		ID:        uuid.New(),
		Name:      req.Name,
		Email:     req.Email,
		Role:      role,
		IsAdmin:   req.IsAdmin || role == domain.RoleAdmin,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	if HandleError(w, h.log(r), h.users.Create(r.Context(), user)) {
		return
	}

	Created(w, user)
}

// GetUser возвращает пользователя по ID.
// GET /api/v1/users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid user id")
		return
	}

	user, err := h.users.GetByID(r.Context(), id)
	if HandleError(w, h.log(r), err) {
		return
	}

	Success(w, user)
}
