package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Tenderflow/internal/domain"
)

// Tender DTOs

// CreateTenderRequest — запрос на создание тендера.
// Создатель передаётся в заголовке X-Actor-ID.
type CreateTenderRequest struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Amount      float64        `json:"amount"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Deadline    *time.Time     `json:"deadline,omitempty"`
}

// TransitionRequest — тело approve/reject/cancel.
type TransitionRequest struct {
	Comments string     `json:"comments,omitempty"`
	Deadline *time.Time `json:"deadline,omitempty"`
}

// TenderResponse — ответ с тендером.
type TenderResponse struct {
	ID             uuid.UUID      `json:"id"`
	Reference      string         `json:"reference"`
	Title          string         `json:"title"`
	Description    string         `json:"description,omitempty"`
	Amount         float64        `json:"amount"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Phase          int            `json:"phase"`
	Step           int            `json:"step"`
	StepTitle      string         `json:"step_title,omitempty"`
	Role           domain.Role    `json:"role,omitempty"`
	CurrentActorID *uuid.UUID     `json:"current_actor_id"`
	Status         string         `json:"status"`
	Deadline       *time.Time     `json:"deadline,omitempty"`
	CreatedBy      uuid.UUID      `json:"created_by"`
	Version        int            `json:"version"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// TenderFromDomain конвертирует domain.Tender в TenderResponse.
// step — определение текущего шага, может быть nil.
func TenderFromDomain(t domain.Tender, step *domain.StepDefinition) TenderResponse {
	resp := TenderResponse{
		ID:             t.ID,
		Reference:      t.Reference,
		Title:          t.Title,
		Description:    t.Description,
		Amount:         t.Amount,
		Metadata:       t.Metadata,
		Phase:          t.CurrentPhase,
		Step:           t.CurrentStep,
		CurrentActorID: t.CurrentActorID,
		Status:         string(t.Status),
		Deadline:       t.Deadline,
		CreatedBy:      t.CreatedBy,
		Version:        t.Version,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
	if step != nil {
		resp.StepTitle = step.Title
		resp.Role = step.ResponsibleRole
	}
	return resp
}

// Catalog DTOs

// PhaseResponse — шаги одной фазы.
type PhaseResponse struct {
	Phase int                     `json:"phase"`
	Steps []domain.StepDefinition `json:"steps"`
}

// CatalogResponse — каталог шагов целиком.
type CatalogResponse struct {
	TotalSteps int             `json:"total_steps"`
	Phases     []PhaseResponse `json:"phases"`
}

// User DTOs

// CreateUserRequest — запрос на добавление пользователя в справочник.
type CreateUserRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	IsAdmin bool   `json:"is_admin,omitempty"`
}
