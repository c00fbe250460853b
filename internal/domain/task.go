package domain

import (
	"time"

	"github.com/google/uuid"
)

// Task — элемент очереди задач исполнителя: активный тендер,
// ожидающий решения на текущем шаге.
//
// Task не хранится отдельно, он строится из тендера и определения
// текущего шага при каждом запросе очереди.
type Task struct {
	TenderID  uuid.UUID `json:"tender_id"`
	Reference string    `json:"reference"`
	Title     string    `json:"title"`
	Amount    float64   `json:"amount"`

	// Position — шаг, на котором тендер ждёт решения.
	Position StepRef `json:"position"`

	// StepTitle и Role берутся из каталога. Пусты, если шага нет в каталоге.
	StepTitle string `json:"step_title,omitempty"`
	Role      Role   `json:"role,omitempty"`

	ActorID  *uuid.UUID `json:"actor_id,omitempty"`
	Deadline *time.Time `json:"deadline,omitempty"`

	// Overdue — срок шага истёк на момент построения задачи.
	Overdue bool `json:"overdue"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewTask строит задачу из тендера и определения его текущего шага.
// step может быть nil.
func NewTask(t *Tender, step *StepDefinition, now time.Time) Task {
	task := Task{
		TenderID:  t.ID,
		Reference: t.Reference,
		Title:     t.Title,
		Amount:    t.Amount,
		Position:  t.Position(),
		ActorID:   t.CurrentActorID,
		Deadline:  t.Deadline,
		Overdue:   t.IsOverdue(now),
		UpdatedAt: t.UpdatedAt,
	}
	if step != nil {
		task.StepTitle = step.Title
		task.Role = step.ResponsibleRole
	}
	return task
}
