package domain

import (
	"time"

	"github.com/google/uuid"
)

// Tender — тендер (appel d'offres), проходящий workflow согласования.
//
// Тендер создаётся на позиции (1,1) и меняет позицию только через
// движок переходов. После перехода в финальный статус позиция
// больше не меняется.
type Tender struct {
	// ID — уникальный идентификатор тендера.
	ID uuid.UUID `json:"id"`

	// Reference — человекочитаемый номер, например "AO-2026-000042".
	Reference string `json:"reference"`

	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Amount      float64 `json:"amount"`

	// Metadata — произвольные атрибуты, которые движок не интерпретирует.
	Metadata map[string]any `json:"metadata,omitempty"`

	// CurrentPhase / CurrentStep — текущая позиция в каталоге шагов.
	CurrentPhase int `json:"current_phase"`
	CurrentStep  int `json:"current_step"`

	// CurrentActorID — ответственный за текущий шаг.
	// Nil, если ни один активный пользователь не держит нужную роль.
	CurrentActorID *uuid.UUID `json:"current_actor_id,omitempty"`

	Status TenderStatus `json:"status"`

	// Deadline — срок выполнения текущего шага.
	Deadline *time.Time `json:"deadline,omitempty"`

	// OverdueNotifiedAt — когда по текущему сроку было отправлено
	// уведомление о просрочке. Сбрасывается при каждом переходе.
	OverdueNotifiedAt *time.Time `json:"-"`

	CreatedBy uuid.UUID `json:"created_by"`

	// Version — счётчик оптимистической блокировки.
	Version int `json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Position возвращает текущую позицию тендера.
func (t *Tender) Position() StepRef {
	return StepRef{Phase: t.CurrentPhase, Step: t.CurrentStep}
}

// IsActive возвращает true, если тендер ещё движется по workflow.
func (t *Tender) IsActive() bool {
	return t.Status == TenderStatusActive
}

// IsAssigned возвращает true, если у текущего шага есть исполнитель.
func (t *Tender) IsAssigned() bool {
	return t.CurrentActorID != nil && *t.CurrentActorID != uuid.Nil
}

// IsOverdue возвращает true, если срок текущего шага истёк.
func (t *Tender) IsOverdue(now time.Time) bool {
	return t.IsActive() && t.Deadline != nil && t.Deadline.Before(now)
}

// MoveTo переставляет тендер на новую позицию с новым исполнителем и сроком.
func (t *Tender) MoveTo(pos StepRef, actorID *uuid.UUID, deadline time.Time, at time.Time) {
	t.CurrentPhase = pos.Phase
	t.CurrentStep = pos.Step
	t.CurrentActorID = actorID
	t.Deadline = &deadline
	t.OverdueNotifiedAt = nil
	t.UpdatedAt = at
}

// MarkCompleted завершает тендер. Позиция остаётся на последнем шаге.
func (t *Tender) MarkCompleted(at time.Time) {
	t.Status = TenderStatusCompleted
	t.CurrentActorID = nil
	t.Deadline = nil
	t.OverdueNotifiedAt = nil
	t.UpdatedAt = at
}

// MarkCancelled отменяет тендер. Позиция остаётся прежней.
func (t *Tender) MarkCancelled(at time.Time) {
	t.Status = TenderStatusCancelled
	t.CurrentActorID = nil
	t.Deadline = nil
	t.OverdueNotifiedAt = nil
	t.UpdatedAt = at
}
