package domain

import (
	"time"

	"github.com/google/uuid"
)

// StepHistoryEntry — запись журнала шагов тендера.
//
// Журнал только пополняется: записи не изменяются и не удаляются.
// Порядок записей определяется CreatedAt (при равенстве — ID).
type StepHistoryEntry struct {
	// ID — назначается хранилищем при добавлении.
	ID int64 `json:"id"`

	TenderID uuid.UUID `json:"tender_id"`

	// Step — шаг, к которому относится запись (для перехода — покидаемый шаг).
	Step StepRef `json:"step"`

	// ActorID — кто выполнил действие.
	ActorID *uuid.UUID `json:"actor_id,omitempty"`

	Action   HistoryAction `json:"action"`
	Comments string        `json:"comments,omitempty"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// TimelineEntry — запись журнала вместе с описанием шага из каталога.
// Step равен nil, если шага уже нет в загруженном каталоге.
type TimelineEntry struct {
	Entry StepHistoryEntry `json:"entry"`
	Step  *StepDefinition  `json:"step,omitempty"`
}
