package notifier

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Tenderflow/internal/domain"
)

// Kind — вид уведомления.
type Kind string

const (
	// KindAssignment — тендер назначен исполнителю следующего шага.
	KindAssignment Kind = "assignment"

	// KindUnassigned — для шага не нашлось исполнителя.
	KindUnassigned Kind = "unassigned"

	// KindCompleted — workflow завершён.
	KindCompleted Kind = "completed"

	// KindCancelled — тендер отменён.
	KindCancelled Kind = "cancelled"

	// KindOverdue — срок текущего шага истёк.
	KindOverdue Kind = "overdue"
)

// Recipient — получатель уведомления.
type Recipient struct {
	ID    uuid.UUID   `json:"id"`
	Name  string      `json:"name,omitempty"`
	Email string      `json:"email,omitempty"`
	Role  domain.Role `json:"role,omitempty"`
}

// Notification — тело, отправляемое на webhook.
type Notification struct {
	Kind      Kind      `json:"kind"`
	TenderID  uuid.UUID `json:"tender_id"`
	Reference string    `json:"reference"`

	// Action — действие, вызвавшее уведомление; пусто для просрочки.
	Action domain.HistoryAction `json:"action,omitempty"`

	Position  domain.StepRef `json:"position"`
	StepTitle string         `json:"step_title,omitempty"`
	Role      domain.Role    `json:"role,omitempty"`

	// Recipient — nil, если исполнителя нет или он не найден.
	Recipient *Recipient `json:"recipient,omitempty"`

	Deadline   *time.Time `json:"deadline,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// transitionKind определяет вид уведомления по событию перехода.
func transitionKind(e domain.TransitionEvent) Kind {
	switch e.Status {
	case domain.TenderStatusCompleted:
		return KindCompleted
	case domain.TenderStatusCancelled:
		return KindCancelled
	}
	if e.NextActorID == nil {
		return KindUnassigned
	}
	return KindAssignment
}
