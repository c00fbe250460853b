package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransitionEvent — событие о зафиксированном изменении тендера.
// Публикуется после коммита транзакции перехода.
type TransitionEvent struct {
	TenderID    uuid.UUID     `json:"tender_id"`
	Reference   string        `json:"reference"`
	Action      HistoryAction `json:"action"`
	From        StepRef       `json:"from"`
	To          StepRef       `json:"to"`
	ActorID     *uuid.UUID    `json:"actor_id,omitempty"`
	NextActorID *uuid.UUID    `json:"next_actor_id,omitempty"`
	Status      TenderStatus  `json:"status"`
	Deadline    *time.Time    `json:"deadline,omitempty"`
	OccurredAt  time.Time     `json:"occurred_at"`
}

// OverdueEvent — событие о просроченном шаге.
type OverdueEvent struct {
	TenderID   uuid.UUID  `json:"tender_id"`
	Reference  string     `json:"reference"`
	Position   StepRef    `json:"position"`
	ActorID    *uuid.UUID `json:"actor_id,omitempty"`
	Deadline   time.Time  `json:"deadline"`
	DetectedAt time.Time  `json:"detected_at"`
}
